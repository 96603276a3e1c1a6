package conflict

import (
	"strings"
	"testing"
)

// eresolveOutput mirrors the shape of a real npm ERESOLVE failure.
const eresolveOutput = `npm ERR! code ERESOLVE
npm ERR! ERESOLVE unable to resolve dependency tree
npm ERR!
npm ERR! While resolving: fixture@1.0.0
npm ERR! Found: react@17.0.2
npm ERR! node_modules/react
npm ERR!   react@"17.0.2" from the root project
npm ERR!
npm ERR! Could not resolve dependency:
npm ERR! peer react@"^18.0.0" from @mui/material@6.0.0
npm ERR! node_modules/@mui/material
npm ERR!
npm ERR! Fix the upstream dependency conflict, or retry
npm ERR! this command with --force or --legacy-peer-deps`

func TestInterpret_PeerConflict_NamesRequirer(t *testing.T) {
	c := Interpret(eresolveOutput)
	if c.Kind != KindPeerConflict {
		t.Fatalf("Kind = %v, want KindPeerConflict", c.Kind)
	}
	want := "@mui/material@6.0.0 requires react@^18.0.0"
	if c.Detail != want {
		t.Errorf("Detail = %q, want %q", c.Detail, want)
	}
}

func TestInterpret_PeerConflict_FoundRequiredPair(t *testing.T) {
	text := `npm ERR! Conflicting peer dependency: react@18.2.0
npm ERR! Found: react@17.0.2
npm ERR! Could not resolve dependency: react@"^18.0.0" is required`
	c := Interpret(text)
	if c.Kind != KindPeerConflict {
		t.Fatalf("Kind = %v, want KindPeerConflict", c.Kind)
	}
	want := "current react@17.0.2 conflicts with required react@^18.0.0"
	if c.Detail != want {
		t.Errorf("Detail = %q, want %q", c.Detail, want)
	}
}

func TestInterpret_PeerConflict_SkipsRootProjectSelfPair(t *testing.T) {
	// The root-project line restates the installed version; the detail
	// must pair Found with the conflicting requirement, never with itself.
	text := `npm ERR! Conflicting peer dependency detected
npm ERR! Found: react@17.0.2
npm ERR!   react@"17.0.2" from the root project
npm ERR! Could not resolve dependency: react@"^18.0.0" is required`
	c := Interpret(text)
	if c.Kind != KindPeerConflict {
		t.Fatalf("Kind = %v, want KindPeerConflict", c.Kind)
	}
	want := "current react@17.0.2 conflicts with required react@^18.0.0"
	if c.Detail != want {
		t.Errorf("Detail = %q, want %q", c.Detail, want)
	}
}

func TestInterpret_PeerConflict_ScopedFoundPackage(t *testing.T) {
	text := `npm ERR! Conflicting peer dependency detected
npm ERR! Found: @angular/core@15.0.0
npm ERR! Could not resolve dependency: @angular/core@"^16.0.0" is required`
	c := Interpret(text)
	if c.Kind != KindPeerConflict {
		t.Fatalf("Kind = %v, want KindPeerConflict", c.Kind)
	}
	want := "current @angular/core@15.0.0 conflicts with required @angular/core@^16.0.0"
	if c.Detail != want {
		t.Errorf("Detail = %q, want %q", c.Detail, want)
	}
}

func TestInterpret_PeerConflict_EcosystemHint(t *testing.T) {
	text := `npm ERR! Conflicting peer dependency detected
npm ERR! something about @emotion/react in the tree`
	c := Interpret(text)
	if c.Kind != KindPeerConflict {
		t.Fatalf("Kind = %v, want KindPeerConflict", c.Kind)
	}
	if !strings.Contains(c.Detail, "Material UI") {
		t.Errorf("Detail = %q, want Material UI ecosystem hint", c.Detail)
	}
}

func TestInterpret_PeerConflict_FallbackMessage(t *testing.T) {
	c := Interpret("npm ERR! peer dep madness with no structure at all")
	if c.Kind != KindPeerConflict {
		t.Fatalf("Kind = %v, want KindPeerConflict", c.Kind)
	}
	if !strings.Contains(c.Detail, "manual intervention required") {
		t.Errorf("Detail = %q, want manual-intervention fallback", c.Detail)
	}
}

func TestInterpret_MissingVersion(t *testing.T) {
	text := `npm ERR! code ETARGET
npm ERR! notarget No matching version found for lodash@4.99.0.
npm ERR! notarget In most cases you or one of your dependencies are requesting
npm ERR! notarget a package version that doesn't exist.`
	c := Interpret(text)
	if c.Kind != KindMissingVersion {
		t.Fatalf("Kind = %v, want KindMissingVersion", c.Kind)
	}
	if !strings.Contains(c.Detail, "lodash") || !strings.Contains(c.Detail, "4.99.0") {
		t.Errorf("Detail = %q, want package and version named", c.Detail)
	}
}

func TestInterpret_MissingVersion_ScopedPackage(t *testing.T) {
	c := Interpret("npm ERR! notarget No matching version found for @types/node@99.0.0.")
	if c.Kind != KindMissingVersion {
		t.Fatalf("Kind = %v, want KindMissingVersion", c.Kind)
	}
	want := "version 99.0.0 of @types/node not found in registry"
	if c.Detail != want {
		t.Errorf("Detail = %q, want %q", c.Detail, want)
	}
}

func TestInterpret_Generic(t *testing.T) {
	c := Interpret("\n\nnpm ERR! EACCES: permission denied, open '/x'\nnpm ERR! more noise")
	if c.Kind != KindGeneric {
		t.Fatalf("Kind = %v, want KindGeneric", c.Kind)
	}
	if c.Detail != "npm ERR! EACCES: permission denied, open '/x'" {
		t.Errorf("Detail = %q, want first non-empty line", c.Detail)
	}
}

func TestInterpret_EmptyText(t *testing.T) {
	c := Interpret("")
	if c.Kind != KindGeneric {
		t.Fatalf("Kind = %v, want KindGeneric", c.Kind)
	}
	if c.Detail == "" {
		t.Error("Detail should never be empty")
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindGeneric:           "generic",
		KindPeerConflict:      "peer-conflict",
		KindMissingVersion:    "missing-version",
		KindValidationFailure: "validation-failure",
		KindManifestIO:        "manifest-io",
		KindTimeout:           "timeout",
	}
	for kind, want := range kinds {
		if kind.String() != want {
			t.Errorf("%d.String() = %s, want %s", kind, kind.String(), want)
		}
	}
}
