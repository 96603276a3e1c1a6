package npm

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `{
  "name": "fixture",
  "version": "1.0.0",
  "scripts": {
    "build": "webpack",
    "test": "jest"
  },
  "dependencies": {
    "react": "^17.0.0",
    "lodash": "~4.17.20",
    "axios": "1.4.0"
  },
  "devDependencies": {
    "eslint": ">=8.50.0",
    "@types/node": "^20.4.0"
  }
}`

func TestParseManifest_PreservesDeclarationOrder(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	wantOrder := []string{"react", "lodash", "axios", "eslint", "@types/node"}
	if len(m.Dependencies) != len(wantOrder) {
		t.Fatalf("got %d dependencies, want %d", len(m.Dependencies), len(wantOrder))
	}
	for i, name := range wantOrder {
		if m.Dependencies[i].Name != name {
			t.Errorf("Dependencies[%d].Name = %s, want %s", i, m.Dependencies[i].Name, name)
		}
	}

	// Dev flag tracks the section the entry came from.
	if m.Dependencies[0].Dev {
		t.Error("react should not be marked dev")
	}
	if !m.Dependencies[3].Dev {
		t.Error("eslint should be marked dev")
	}
}

func TestParseManifest_TestScript(t *testing.T) {
	m, err := ParseManifest([]byte(sampleManifest))
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}
	if !m.HasTestScript() {
		t.Error("HasTestScript() = false, want true")
	}

	placeholder := `{"scripts": {"test": "echo \"Error: no test specified\" && exit 1"}}`
	m, err = ParseManifest([]byte(placeholder))
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}
	if m.HasTestScript() {
		t.Error("HasTestScript() should ignore the npm init placeholder")
	}
}

func TestReadManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(sampleManifest), 0644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	m, err := ReadManifest(dir)
	if err != nil {
		t.Fatalf("ReadManifest() failed: %v", err)
	}

	dep, ok := m.Find("lodash")
	if !ok {
		t.Fatal("Find(lodash) not found")
	}
	if dep.Spec != "~4.17.20" {
		t.Errorf("lodash spec = %s, want ~4.17.20", dep.Spec)
	}
}

func TestReadManifest_Missing(t *testing.T) {
	if _, err := ReadManifest(t.TempDir()); err == nil {
		t.Error("ReadManifest() should fail when package.json is absent")
	}
}

func TestStripRange(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"^4.17.20", "4.17.20"},
		{"~1.2.3", "1.2.3"},
		{">=8.50.0", "8.50.0"},
		{" 1.0.0 ", "1.0.0"},
		{"v2.0.0", "2.0.0"},
		{"18.2.0", "18.2.0"},
	}
	for _, tt := range tests {
		if got := StripRange(tt.spec); got != tt.want {
			t.Errorf("StripRange(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestInstallArgs(t *testing.T) {
	args := InstallArgs([]string{"lodash@4.17.21"}, false, false)
	want := []string{"install", "lodash@4.17.21", "--save-exact"}
	if len(args) != len(want) {
		t.Fatalf("InstallArgs() = %v, want %v", args, want)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("InstallArgs()[%d] = %s, want %s", i, args[i], want[i])
		}
	}

	args = InstallArgs([]string{"eslint@8.51.0"}, true, true)
	joined := ""
	for _, a := range args {
		joined += a + " "
	}
	for _, flag := range []string{"--save-dev", "--dry-run", "--save-exact"} {
		found := false
		for _, a := range args {
			if a == flag {
				found = true
			}
		}
		if !found {
			t.Errorf("InstallArgs() missing %s in %q", flag, joined)
		}
	}
}
