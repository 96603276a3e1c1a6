package planner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/depup/internal/engine"
	"github.com/blackwell-systems/depup/internal/npm"
	"github.com/blackwell-systems/depup/internal/resolver"
	"github.com/blackwell-systems/depup/internal/risk"
	"github.com/blackwell-systems/depup/internal/sequencer"
)

// fakeNPM simulates the npm boundary: registry answers from a fixed
// table, installs that rewrite the manifest the way npm would, and
// scripted failures per package spec.
type fakeNPM struct {
	dir      string
	registry map[string]string
	declared map[string]string

	// installs records name@version specs in apply order, one slice
	// per install invocation.
	installs [][]string

	// failSpec maps a name@version spec to a canned failure output.
	failSpec map[string]string
}

func (f *fakeNPM) Run(ctx context.Context, dir string, args ...string) npm.Result {
	switch {
	case args[0] == "view":
		v, ok := f.registry[args[1]]
		if !ok {
			return npm.Result{Output: "npm ERR! 404 Not Found"}
		}
		return npm.Result{OK: true, Output: v + "\n"}

	case args[0] == "install" && len(args) > 1 && args[1] != "--package-lock-only":
		var specs []string
		for _, a := range args[1:] {
			if !strings.HasPrefix(a, "-") {
				specs = append(specs, a)
			}
		}
		for _, spec := range specs {
			if out, ok := f.failSpec[spec]; ok {
				return npm.Result{Output: out}
			}
		}
		if !hasFlag(args, "--dry-run") {
			f.installs = append(f.installs, specs)
			f.rewriteManifest(specs)
		}
		return npm.Result{OK: true}

	default:
		// Lock refreshes, validation gates, final checks.
		return npm.Result{OK: true}
	}
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

// rewriteManifest updates declared versions in package.json, matching
// what a real `npm install name@version --save-exact` does.
func (f *fakeNPM) rewriteManifest(specs []string) {
	path := filepath.Join(f.dir, npm.ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	s := string(data)
	for _, spec := range specs {
		i := strings.LastIndex(spec, "@")
		name, version := spec[:i], spec[i+1:]
		old := f.declared[name]
		s = strings.Replace(s, `"`+name+`": "`+old+`"`, `"`+name+`": "`+version+`"`, 1)
		f.declared[name] = version
	}
	os.WriteFile(path, []byte(s), 0644)
}

// newProject writes a manifest and wires up a fake npm plus a planner.
func newProject(t *testing.T, manifest string, registry map[string]string) (string, *fakeNPM, *Planner) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, npm.ManifestName), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	m, err := npm.ParseManifest([]byte(manifest))
	if err != nil {
		t.Fatalf("fixture manifest invalid: %v", err)
	}
	declared := make(map[string]string)
	for _, dep := range m.Dependencies {
		declared[dep.Name] = dep.Spec
	}

	fake := &fakeNPM{dir: dir, registry: registry, declared: declared, failSpec: make(map[string]string)}
	p := New(resolver.New(fake, dir), engine.New(fake, dir), sequencer.New())
	return dir, fake, p
}

func allInstalled(fake *fakeNPM) []string {
	var out []string
	for _, call := range fake.installs {
		out = append(out, call...)
	}
	return out
}

func TestRun_SequentialUpgradesAndSkips(t *testing.T) {
	manifest := `{
  "dependencies": {
    "lodash": "^4.17.20",
    "axios": "1.5.0"
  },
  "devDependencies": {
    "internal-pkg": "1.0.0"
  }
}`
	registry := map[string]string{
		"lodash": "4.17.21",
		"axios":  "1.5.0",
		// internal-pkg deliberately missing from the registry.
	}
	dir, fake, p := newProject(t, manifest, registry)

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(rc.Successful) != 1 || rc.Successful[0].Package != "lodash" {
		t.Fatalf("Successful = %+v, want exactly lodash", rc.Successful)
	}
	if rc.Successful[0].Old != "4.17.20" || rc.Successful[0].New != "4.17.21" || rc.Successful[0].Tier != risk.TierSafe {
		t.Errorf("lodash outcome = %+v, want (4.17.20 -> 4.17.21, safe)", rc.Successful[0])
	}

	skips := map[string]string{}
	for _, o := range rc.Skipped {
		skips[o.Package] = o.Reason
	}
	if skips["axios"] != "already up to date" {
		t.Errorf("axios skip = %q, want already up to date", skips["axios"])
	}
	if skips["internal-pkg"] != "version unavailable" {
		t.Errorf("internal-pkg skip = %q, want version unavailable", skips["internal-pkg"])
	}

	if installed := allInstalled(fake); len(installed) != 1 || installed[0] != "lodash@4.17.21" {
		t.Errorf("installs = %v, want [lodash@4.17.21]", installed)
	}
	if !rc.Succeeded() {
		t.Error("run with one commit should count as succeeded")
	}
}

func TestRun_SecondRunIsIdempotent(t *testing.T) {
	manifest := `{"dependencies": {"lodash": "4.17.20"}}`
	registry := map[string]string{"lodash": "4.17.21"}
	dir, fake, p := newProject(t, manifest, registry)

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	if len(rc.Successful) != 1 {
		t.Fatalf("first run Successful = %+v, want one", rc.Successful)
	}

	// Fresh planner, same registry answers: the committed manifest now
	// declares the latest version, so nothing is upgradeable.
	p2 := New(resolver.New(fake, dir), engine.New(fake, dir), sequencer.New())
	rc2, err := p2.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if len(rc2.Successful) != 0 || len(rc2.Failed) != 0 {
		t.Errorf("second run = %d successful, %d failed; want 0, 0",
			len(rc2.Successful), len(rc2.Failed))
	}
	if len(allInstalled(fake)) != 1 {
		t.Errorf("installs after both runs = %v, want just the first", allInstalled(fake))
	}
}

func TestRun_PeerPulledInFirst(t *testing.T) {
	// react-dom is declared before react, but react sequences first and
	// pulls its peer react-dom ahead of itself.
	manifest := `{"dependencies": {"react-dom": "17.0.0", "react": "17.0.0"}}`
	registry := map[string]string{"react": "18.2.0", "react-dom": "18.2.0"}
	dir, fake, p := newProject(t, manifest, registry)

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(rc.Successful) != 2 {
		t.Fatalf("Successful = %+v, want both react packages", rc.Successful)
	}

	installed := allInstalled(fake)
	if len(installed) != 2 || installed[0] != "react-dom@18.2.0" || installed[1] != "react@18.2.0" {
		t.Errorf("install order = %v, want [react-dom@18.2.0 react@18.2.0]", installed)
	}
}

func TestRun_TierFilter(t *testing.T) {
	manifest := `{"dependencies": {"react": "17.0.0", "lodash": "4.17.20"}}`
	registry := map[string]string{"react": "18.2.0", "lodash": "4.17.21"}
	dir, fake, p := newProject(t, manifest, registry)
	p.Tiers = map[risk.Tier]bool{risk.TierSafe: true}

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(rc.Successful) != 1 || rc.Successful[0].Package != "lodash" {
		t.Errorf("Successful = %+v, want only lodash (safe)", rc.Successful)
	}
	found := false
	for _, o := range rc.Skipped {
		if o.Package == "react" && o.Reason == "tier not selected" {
			found = true
		}
	}
	if !found {
		t.Errorf("Skipped = %+v, want react skipped as tier not selected", rc.Skipped)
	}
	for _, spec := range allInstalled(fake) {
		if strings.HasPrefix(spec, "react@") {
			t.Error("react must not be installed when its tier is filtered out")
		}
	}
}

func TestRun_GroupedModeAppliesEcosystemTogether(t *testing.T) {
	manifest := `{"dependencies": {"react": "17.0.0", "react-dom": "17.0.0", "lodash": "4.17.20"}}`
	registry := map[string]string{"react": "18.2.0", "react-dom": "18.2.0", "lodash": "4.17.21"}
	dir, fake, p := newProject(t, manifest, registry)
	p.Mode = ModeGrouped

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(rc.Successful) != 3 {
		t.Fatalf("Successful = %+v, want all three", rc.Successful)
	}

	// The react group installs in one invocation; lodash separately.
	if len(fake.installs) != 2 {
		t.Fatalf("install invocations = %v, want 2", fake.installs)
	}
	if len(fake.installs[0]) != 2 {
		t.Errorf("first invocation = %v, want the react pair together", fake.installs[0])
	}
}

func TestRun_GroupFailureMarksAllMembers(t *testing.T) {
	manifest := `{"dependencies": {"react": "17.0.0", "react-dom": "17.0.0"}}`
	registry := map[string]string{"react": "18.2.0", "react-dom": "18.2.0"}
	dir, fake, p := newProject(t, manifest, registry)
	p.Mode = ModeGrouped
	fake.failSpec["react@18.2.0"] = "npm ERR! ERESOLVE unable to resolve dependency tree"

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if len(rc.Failed) != 2 {
		t.Fatalf("Failed = %+v, want both group members", rc.Failed)
	}
	if rc.Succeeded() {
		t.Error("run with zero commits and failures should not count as succeeded")
	}
}

func TestRun_BatchMode(t *testing.T) {
	manifest := `{"dependencies": {"a-pkg": "1.0.0", "b-pkg": "1.0.0", "c-pkg": "1.0.0"}}`
	registry := map[string]string{"a-pkg": "1.0.1", "b-pkg": "1.0.1", "c-pkg": "1.0.1"}
	dir, fake, p := newProject(t, manifest, registry)
	p.Mode = ModeBatch
	p.BatchSize = 2

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(rc.Successful) != 3 {
		t.Fatalf("Successful = %+v, want all three", rc.Successful)
	}
	if len(fake.installs) != 2 {
		t.Errorf("install invocations = %d, want 2 (batch of 2, then 1)", len(fake.installs))
	}
}

func TestRun_CancelledBeforeStartIsInterrupted(t *testing.T) {
	manifest := `{"dependencies": {"lodash": "4.17.20"}}`
	registry := map[string]string{"lodash": "4.17.21"}
	dir, fake, p := newProject(t, manifest, registry)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc, err := p.Run(ctx, dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !rc.Interrupted {
		t.Error("run cancelled before the first unit should be marked interrupted")
	}
	if len(allInstalled(fake)) != 0 {
		t.Error("no installs should happen after cancellation")
	}
}

func TestRun_FinalCheck(t *testing.T) {
	manifest := `{"dependencies": {"lodash": "4.17.20"}}`
	registry := map[string]string{"lodash": "4.17.21"}
	dir, _, p := newProject(t, manifest, registry)
	p.FinalCheck = true

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !rc.FinalCheckRan || !rc.FinalCheckOK {
		t.Errorf("final check = (ran=%v, ok=%v), want (true, true)", rc.FinalCheckRan, rc.FinalCheckOK)
	}
	// The final check is informational: the commit stands either way.
	if len(rc.Successful) != 1 {
		t.Errorf("Successful = %+v, want the lodash commit", rc.Successful)
	}
}

func TestRun_OnUnitObservesEveryAppliedUnit(t *testing.T) {
	manifest := `{"dependencies": {"react-dom": "17.0.0", "react": "17.0.0", "lodash": "4.17.20"}}`
	registry := map[string]string{"react": "18.2.0", "react-dom": "18.2.0", "lodash": "4.17.21"}
	dir, _, p := newProject(t, manifest, registry)

	var seen []string
	p.OnUnit = func(u *sequencer.Unit) {
		for _, r := range u.Records {
			seen = append(seen, r.Name)
		}
	}

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(seen) != len(rc.Successful) {
		t.Fatalf("observed %v, want one entry per applied record (%d)", seen, len(rc.Successful))
	}

	// Peer pull-ins are reported too, ahead of the unit that pulled them.
	idxDom, idxReact := -1, -1
	for i, name := range seen {
		switch name {
		case "react-dom":
			idxDom = i
		case "react":
			idxReact = i
		}
	}
	if idxDom == -1 || idxReact == -1 || idxDom > idxReact {
		t.Errorf("observed order = %v, want react-dom reported before react", seen)
	}
}

func TestDiscover_ReadsDeclaredVersionFresh(t *testing.T) {
	manifest := `{"dependencies": {"lodash": "4.17.19"}}`
	registry := map[string]string{"lodash": "4.17.21"}
	dir, _, p := newProject(t, manifest, registry)

	rc := NewRunContext(ModeSequential)
	records, err := p.Discover(context.Background(), dir, rc)
	if err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if len(records) != 1 || records[0].Current != "4.17.19" {
		t.Fatalf("records = %+v, want lodash at 4.17.19", records)
	}

	// Rewrite the manifest behind the planner's back; a later discovery
	// pass must read the new declared version from disk.
	next := `{"dependencies": {"lodash": "4.17.20"}}`
	if err := os.WriteFile(filepath.Join(dir, npm.ManifestName), []byte(next), 0644); err != nil {
		t.Fatalf("failed to rewrite manifest: %v", err)
	}

	rc2 := NewRunContext(ModeSequential)
	records2, err := p.Discover(context.Background(), dir, rc2)
	if err != nil {
		t.Fatalf("second Discover() failed: %v", err)
	}
	if len(records2) != 1 || records2[0].Current != "4.17.20" {
		t.Fatalf("records = %+v, want lodash at 4.17.20", records2)
	}
}

func TestRun_OnlyFilter(t *testing.T) {
	manifest := `{"dependencies": {"lodash": "4.17.20", "axios": "1.4.0"}}`
	registry := map[string]string{"lodash": "4.17.21", "axios": "1.5.0"}
	dir, fake, p := newProject(t, manifest, registry)
	p.Only = map[string]bool{"axios": true}

	rc, err := p.Run(context.Background(), dir)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(rc.Successful) != 1 || rc.Successful[0].Package != "axios" {
		t.Errorf("Successful = %+v, want only axios", rc.Successful)
	}
	if got := allInstalled(fake); len(got) != 1 || got[0] != "axios@1.5.0" {
		t.Errorf("installs = %v, want [axios@1.5.0]", got)
	}
}
