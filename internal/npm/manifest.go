package npm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestName and LockName are the files the apply engine snapshots and
// restores around every upgrade unit.
const (
	ManifestName = "package.json"
	LockName     = "package-lock.json"
)

// ReadManifest parses dir/package.json. Dependency order is preserved as
// declared, which the sequencer uses as its tie-break.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ManifestName, err)
	}
	return ParseManifest(data)
}

// ParseManifest parses raw package.json bytes.
func ParseManifest(data []byte) (*Manifest, error) {
	m := &Manifest{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestName, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("failed to parse %s: top-level value is not an object", ManifestName)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", ManifestName, err)
		}
		key, _ := keyTok.(string)

		switch key {
		case "dependencies":
			deps, err := readDependencyObject(dec, false)
			if err != nil {
				return nil, err
			}
			m.Dependencies = append(m.Dependencies, deps...)
		case "devDependencies":
			deps, err := readDependencyObject(dec, true)
			if err != nil {
				return nil, err
			}
			m.Dependencies = append(m.Dependencies, deps...)
		case "scripts":
			var scripts map[string]string
			if err := dec.Decode(&scripts); err != nil {
				return nil, fmt.Errorf("failed to parse scripts: %w", err)
			}
			m.TestScript = scripts["test"]
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", ManifestName, err)
			}
		}
	}

	return m, nil
}

// readDependencyObject consumes one {"name": "spec", ...} object from the
// decoder, preserving key order.
func readDependencyObject(dec *json.Decoder, dev bool) ([]Dependency, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse dependencies: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("failed to parse dependencies: not an object")
	}

	var deps []Dependency
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse dependencies: %w", err)
		}
		name, _ := keyTok.(string)

		var spec string
		if err := dec.Decode(&spec); err != nil {
			return nil, fmt.Errorf("failed to parse dependency %s: %w", name, err)
		}

		deps = append(deps, Dependency{Name: name, Spec: spec, Dev: dev})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse dependencies: %w", err)
	}

	return deps, nil
}

// HasTestScript reports whether package.json declares a real test script.
// The npm init placeholder ("Error: no test specified") does not count.
func (m *Manifest) HasTestScript() bool {
	if m.TestScript == "" {
		return false
	}
	return !strings.Contains(m.TestScript, "no test specified")
}

// Find returns the declared dependency with the given name.
func (m *Manifest) Find(name string) (Dependency, bool) {
	for _, dep := range m.Dependencies {
		if dep.Name == name {
			return dep, true
		}
	}
	return Dependency{}, false
}

// StripRange removes range operators and whitespace from a version spec,
// leaving the bare declared version: "^4.17.20" becomes "4.17.20".
func StripRange(spec string) string {
	spec = strings.TrimSpace(spec)
	spec = strings.TrimLeft(spec, "^~><= ")
	return strings.TrimPrefix(spec, "v")
}

// HasTypeScript reports whether the project carries a tsconfig.json,
// which enables the type-check step of the full validation gate.
func HasTypeScript(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "tsconfig.json"))
	return err == nil
}
