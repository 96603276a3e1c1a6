package risk

import (
	"strconv"
	"strings"
)

// coreFrameworks are packages whose upgrades ripple through an entire
// application regardless of the version delta. Always high risk.
var coreFrameworks = map[string]bool{
	"react":     true,
	"react-dom": true,
	"vue":       true,
	"angular":   true,
	"@angular/core": true,
	"svelte":    true,
	"next":      true,
	"nuxt":      true,
	"express":   true,
}

// routingPackages sit on the critical path of every page load and break
// in subtle ways across versions. Always high risk.
var routingPackages = map[string]bool{
	"react-router":     true,
	"react-router-dom": true,
	"vue-router":       true,
	"@angular/router":  true,
}

// buildTools are medium risk when the minor version moves: their output
// changes shape but the application code usually survives.
var buildTools = map[string]bool{
	"webpack":    true,
	"vite":       true,
	"rollup":     true,
	"esbuild":    true,
	"typescript": true,
	"babel":      true,
	"@babel/core": true,
	"parcel":     true,
}

// devToolExact and devToolPrefixes match tooling that never ships to
// production. Low risk whatever the delta.
var devToolExact = map[string]bool{
	"eslint":   true,
	"prettier": true,
	"jest":     true,
	"vitest":   true,
	"mocha":    true,
	"chai":     true,
	"husky":    true,
	"lint-staged": true,
	"nodemon":  true,
	"rimraf":   true,
}

var devToolPrefixes = []string{
	"eslint-",
	"@typescript-eslint/",
	"@types/",
	"@testing-library/",
	"prettier-",
	"jest-",
}

// Classify assigns a risk tier to upgrading name from current to latest.
// It is a total function: unparseable versions fall back to TierUnknown,
// everything else resolves through the tables and the version delta.
func Classify(name, current, latest string) Tier {
	dMajor, dMinor, _, ok := Delta(current, latest)
	if !ok {
		// No delta can be computed; treat as unknown so the full
		// validation gate runs.
		return TierUnknown
	}

	switch {
	case dMajor > 0:
		return TierHigh
	case coreFrameworks[name]:
		return TierHigh
	case routingPackages[name]:
		return TierHigh
	case buildTools[name] && dMinor > 0:
		return TierMedium
	case isDevTool(name):
		return TierLow
	case dMajor == 0 && dMinor == 0:
		return TierSafe
	default:
		return TierLow
	}
}

// isDevTool checks the exact-name set first, then the prefix rules.
func isDevTool(name string) bool {
	if devToolExact[name] {
		return true
	}
	for _, prefix := range devToolPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Delta returns the per-component integer differences between two version
// strings. Missing numeric components count as 0 and pre-release/build
// suffixes are stripped before comparison. ok is false only when neither
// string yields a single numeric component.
func Delta(current, latest string) (dMajor, dMinor, dPatch int, ok bool) {
	curMajor, curMinor, curPatch, curOK := parseVersion(current)
	latMajor, latMinor, latPatch, latOK := parseVersion(latest)
	if !curOK || !latOK {
		return 0, 0, 0, false
	}
	return latMajor - curMajor, latMinor - curMinor, latPatch - curPatch, true
}

// parseVersion splits a version string into its numeric components.
// "18.2" parses as (18, 2, 0); "1.0.0-beta.3" drops the pre-release tag.
func parseVersion(v string) (major, minor, patch int, ok bool) {
	v = strings.TrimSpace(strings.TrimPrefix(v, "v"))
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	if v == "" {
		return 0, 0, 0, false
	}

	parts := strings.SplitN(v, ".", 3)
	nums := [3]int{}
	for i, p := range parts {
		if p == "" {
			return 0, 0, 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, 0, 0, false
		}
		nums[i] = n
	}

	return nums[0], nums[1], nums[2], true
}
