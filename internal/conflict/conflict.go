// Package conflict classifies npm failure diagnostics. It recognizes the
// textual signatures npm emits for unsatisfiable peer constraints and for
// versions missing from the registry, and extracts a human-usable cause
// where the text allows it. Classification never fails: unmatched text
// falls through to Generic.
package conflict

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the failure taxonomy shared by the apply engine and reporting.
type Kind int

const (
	// KindGeneric is any failure the interpreter could not classify.
	KindGeneric Kind = iota

	// KindPeerConflict is an unsatisfiable peer dependency constraint.
	KindPeerConflict

	// KindMissingVersion means the target version no longer exists
	// upstream.
	KindMissingVersion

	// KindValidationFailure means the install succeeded but a
	// validation step (lock refresh, type check, tests) failed.
	KindValidationFailure

	// KindManifestIO means package.json or the lock file could not be
	// read or written.
	KindManifestIO

	// KindTimeout means an external step exceeded its deadline.
	KindTimeout
)

// String returns the kind name as persisted in outcome records.
func (k Kind) String() string {
	switch k {
	case KindPeerConflict:
		return "peer-conflict"
	case KindMissingVersion:
		return "missing-version"
	case KindValidationFailure:
		return "validation-failure"
	case KindManifestIO:
		return "manifest-io"
	case KindTimeout:
		return "timeout"
	default:
		return "generic"
	}
}

// Classification is the interpreter's verdict on one failure text.
type Classification struct {
	Kind Kind

	// Detail is the extracted explanation, or a trimmed copy of the
	// raw diagnostic when nothing structured could be pulled out.
	Detail string
}

// peerSignatures are the strings npm is known to emit when the resolution
// tree cannot satisfy a peer constraint.
var peerSignatures = []string{
	"ERESOLVE unable to resolve dependency tree",
	"Could not resolve dependency",
	"Conflicting peer dependency",
	"peer dependency",
	"peer dep",
	"Fix the upstream dependency conflict",
}

// missingSignatures mark a target version that the registry no longer has.
var missingSignatures = []string{
	"No matching version found for",
	"ETARGET",
	"notarget",
}

// pkgName matches a bare or scoped package name, e.g. react or
// @mui/material. The optional scope segment must start at the @.
const pkgName = `((?:@[^\s@"/]+/)?[^\s@"]+)`

var (
	// "peer react@"^18.0.0" from @mui/material@6.0.0"
	peerFromRe = regexp.MustCompile(`peer ` + pkgName + `@"([^"]+)" from ` + pkgName + `@([^\s]+)`)

	// Found / Could not resolve pair:
	//   Found: react@17.0.2
	//   Could not resolve dependency: peer react@"^18.0.0" ...
	foundRe    = regexp.MustCompile(`Found: ` + pkgName + `@(\S+)`)
	requiredRe = regexp.MustCompile(pkgName + `@"([^"]+)"`)

	// "No matching version found for lodash@4.99.0"
	missingRe = regexp.MustCompile(`No matching version found for ` + pkgName + `@(\S+)`)
)

// ecosystemHints map a package prefix seen in conflict text to the
// ecosystem that must be upgraded as a coordinated group.
var ecosystemHints = []struct {
	prefix    string
	ecosystem string
}{
	{"@mui/", "Material UI"},
	{"@emotion/", "Material UI"},
	{"@angular/", "Angular"},
	{"react-", "React"},
	{"@aws-sdk/", "AWS SDK"},
	{"@babel/", "Babel"},
}

// Interpret classifies one npm diagnostic text.
func Interpret(text string) Classification {
	for _, sig := range missingSignatures {
		if strings.Contains(text, sig) {
			return Classification{Kind: KindMissingVersion, Detail: missingDetail(text)}
		}
	}

	for _, sig := range peerSignatures {
		if strings.Contains(text, sig) {
			return Classification{Kind: KindPeerConflict, Detail: peerDetail(text)}
		}
	}

	return Classification{Kind: KindGeneric, Detail: firstLine(text)}
}

// peerDetail extracts the most specific explanation the text supports.
func peerDetail(text string) string {
	// Best case: npm names the package demanding the peer.
	if m := peerFromRe.FindStringSubmatch(text); m != nil {
		return fmt.Sprintf("%s@%s requires %s@%s", m[3], m[4], m[1], m[2])
	}

	// Next: a Found/required version pair for the same package. npm
	// restates the installed version as `pkg@"X" from the root project`;
	// that self-pair explains nothing and is skipped.
	if found := foundRe.FindStringSubmatch(text); found != nil {
		rest := text[strings.Index(text, found[0])+len(found[0]):]
		for _, req := range requiredRe.FindAllStringSubmatch(rest, -1) {
			if req[1] == found[1] && req[2] != found[2] {
				return fmt.Sprintf("current %s@%s conflicts with required %s@%s",
					found[1], found[2], req[1], req[2])
			}
		}
	}

	// Fall back to a named-ecosystem hint.
	for _, hint := range ecosystemHints {
		if strings.Contains(text, hint.prefix) {
			return fmt.Sprintf("%s packages must be upgraded together", hint.ecosystem)
		}
	}

	return "peer dependency conflict - manual intervention required"
}

// missingDetail names the offending package@version when extractable.
func missingDetail(text string) string {
	if m := missingRe.FindStringSubmatch(text); m != nil {
		// npm ends the sentence right after the version.
		version := strings.TrimSuffix(m[2], ".")
		return fmt.Sprintf("version %s of %s not found in registry", version, m[1])
	}
	return firstLine(text)
}

// firstLine trims the diagnostic to its first non-empty line.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return "unknown failure"
}
