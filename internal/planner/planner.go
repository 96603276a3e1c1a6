// Package planner composes discovery, risk classification, sequencing,
// and the transactional apply engine into a full upgrade run. All run
// state lives on an explicit RunContext; there are no package-level
// accumulators.
package planner

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/mod/semver"

	"github.com/blackwell-systems/depup/internal/engine"
	"github.com/blackwell-systems/depup/internal/npm"
	"github.com/blackwell-systems/depup/internal/resolver"
	"github.com/blackwell-systems/depup/internal/risk"
	"github.com/blackwell-systems/depup/internal/sequencer"
)

// Mode selects how units are formed from the discovered sequence.
type Mode string

const (
	// ModeSequential applies one package at a time with peer pull-in.
	ModeSequential Mode = "sequential"

	// ModeBatch chunks the ordered sequence into fixed-size units.
	ModeBatch Mode = "batch"

	// ModeGrouped applies coordinated ecosystem groups atomically,
	// then the leftovers sequentially.
	ModeGrouped Mode = "grouped"
)

// DefaultBatchSize is the unit width in batch mode.
const DefaultBatchSize = 5

// Planner drives one upgrade run over a project.
type Planner struct {
	Resolver  *resolver.Resolver
	Engine    *engine.Engine
	Sequencer *sequencer.Sequencer

	Mode      Mode
	BatchSize int

	// Tiers filters which risk tiers are scheduled. Empty means all.
	Tiers map[risk.Tier]bool

	// Only restricts the run to the named packages when non-empty.
	Only map[string]bool

	// FinalCheck runs one informational full validation pass after all
	// units; its failure never rolls anything back.
	FinalCheck bool

	// OnUnit, when set, observes every unit (peer pull-ins included)
	// just before it is applied. Used for progress display.
	OnUnit func(unit *sequencer.Unit)

	Log *slog.Logger
}

// New creates a Planner with sequential mode defaults.
func New(res *resolver.Resolver, eng *engine.Engine, seq *sequencer.Sequencer) *Planner {
	return &Planner{
		Resolver:  res,
		Engine:    eng,
		Sequencer: seq,
		Mode:      ModeSequential,
		BatchSize: DefaultBatchSize,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// RunContext carries one run's accumulated state. Outcome collections
// are append-only; processed tracks scheduling idempotency.
type RunContext struct {
	ID        string
	StartedAt time.Time
	Mode      Mode

	Successful []engine.Outcome
	Failed     []engine.Outcome
	Skipped    []engine.Outcome

	// Interrupted is set when cancellation stopped the run before all
	// units were scheduled.
	Interrupted bool

	// FinalCheckOK and FinalCheckDetail report the informational pass.
	FinalCheckRan    bool
	FinalCheckOK     bool
	FinalCheckDetail string

	processed map[string]bool
}

// NewRunContext starts the bookkeeping for one run.
func NewRunContext(mode Mode) *RunContext {
	return &RunContext{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Mode:      mode,
		processed: make(map[string]bool),
	}
}

// record routes outcomes into the append-only collections and marks
// their packages processed.
func (rc *RunContext) record(outcomes []engine.Outcome) {
	for _, o := range outcomes {
		rc.processed[o.Package] = true
		switch o.Status {
		case engine.StatusSuccessful:
			rc.Successful = append(rc.Successful, o)
		case engine.StatusFailed:
			rc.Failed = append(rc.Failed, o)
		default:
			rc.Skipped = append(rc.Skipped, o)
		}
	}
}

// Processed reports whether a package already has an outcome this run.
func (rc *RunContext) Processed(name string) bool {
	return rc.processed[name]
}

// Outcomes returns all collections deduplicated by (package, old, new).
func (rc *RunContext) Outcomes() []engine.Outcome {
	all := make([]engine.Outcome, 0, len(rc.Successful)+len(rc.Failed)+len(rc.Skipped))
	all = append(all, rc.Successful...)
	all = append(all, rc.Failed...)
	all = append(all, rc.Skipped...)
	return engine.Dedupe(all)
}

// Succeeded reports whole-run success: at least one committed package,
// or nothing needed doing. Partial progress is deliberate policy.
func (rc *RunContext) Succeeded() bool {
	return len(rc.Successful) > 0 || len(rc.Failed) == 0
}

// Discover reads the manifest once, resolves latest versions with a
// bounded fan-out, and builds immutable records for every package that
// has an upgrade available. Up-to-date and unresolvable packages get
// immediate skip outcomes and are excluded from sequencing.
func (p *Planner) Discover(ctx context.Context, dir string, rc *RunContext) ([]*sequencer.Record, error) {
	m, err := npm.ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(m.Dependencies))
	for _, dep := range m.Dependencies {
		if len(p.Only) > 0 && !p.Only[dep.Name] {
			continue
		}
		names = append(names, dep.Name)
	}
	p.Resolver.Prefetch(ctx, names)

	var records []*sequencer.Record
	for _, dep := range m.Dependencies {
		if len(p.Only) > 0 && !p.Only[dep.Name] {
			continue
		}

		current, err := p.Resolver.Current(dep.Name)
		if err != nil {
			rc.record([]engine.Outcome{engine.Skipped(dep.Name, "declared version unreadable")})
			continue
		}
		latest, ok := p.Resolver.Latest(ctx, dep.Name)
		if !ok {
			rc.record([]engine.Outcome{engine.Skipped(dep.Name, "version unavailable")})
			continue
		}
		if upToDate(current, latest) {
			rc.record([]engine.Outcome{engine.Skipped(dep.Name, "already up to date")})
			continue
		}

		records = append(records, &sequencer.Record{
			Name:      dep.Name,
			Current:   current,
			Latest:    latest,
			Tier:      risk.Classify(dep.Name, current, latest),
			Peers:     sequencer.Peers(dep.Name),
			Ecosystem: p.Sequencer.Tag(dep.Name),
			Dev:       dep.Dev,
		})
	}

	return records, nil
}

// upToDate treats a declared version at or ahead of the registry as
// current; downgrades are never applied.
func upToDate(current, latest string) bool {
	if current == latest {
		return true
	}
	cv, lv := "v"+current, "v"+latest
	if semver.IsValid(cv) && semver.IsValid(lv) {
		return semver.Compare(lv, cv) <= 0
	}
	return false
}

// Run executes a full upgrade run: discovery, tier filtering, unit
// construction per mode, and the apply loop. Cancellation stops
// scheduling after the in-flight unit rolls back.
func (p *Planner) Run(ctx context.Context, dir string) (*RunContext, error) {
	rc := NewRunContext(p.Mode)

	if ctx.Err() != nil {
		rc.Interrupted = true
		return rc, nil
	}

	records, err := p.Discover(ctx, dir, rc)
	if err != nil {
		return rc, err
	}

	records = p.filterTiers(rc, records)
	p.Log.Debug("discovery complete", "run", rc.ID, "upgradeable", len(records))

	byName := make(map[string]*sequencer.Record, len(records))
	for _, r := range records {
		byName[r.Name] = r
	}

	switch p.Mode {
	case ModeGrouped:
		groups, rest := p.Sequencer.BuildGroups(records)
		p.drive(ctx, rc, groups, byName)
		p.drive(ctx, rc, rest, byName)
	case ModeBatch:
		p.drive(ctx, rc, p.batchUnits(records), byName)
	default:
		p.drive(ctx, rc, p.Sequencer.BuildSequence(records), byName)
	}

	if p.FinalCheck && !rc.Interrupted {
		rc.FinalCheckRan = true
		rc.FinalCheckOK, rc.FinalCheckDetail = p.Engine.FinalCheck(ctx)
	}

	return rc, nil
}

// filterTiers drops records whose tier is not enabled, recording a skip
// so re-runs stay idempotent.
func (p *Planner) filterTiers(rc *RunContext, records []*sequencer.Record) []*sequencer.Record {
	if len(p.Tiers) == 0 {
		return records
	}
	kept := records[:0:0]
	for _, r := range records {
		if p.Tiers[r.Tier] {
			kept = append(kept, r)
			continue
		}
		rc.record([]engine.Outcome{engine.Skipped(r.Name, "tier not selected")})
	}
	return kept
}

// batchUnits chunks the ordered sequence into fixed-size units.
func (p *Planner) batchUnits(records []*sequencer.Record) []*sequencer.Unit {
	size := p.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	ordered := p.Sequencer.BuildSequence(records)
	var units []*sequencer.Unit
	for start := 0; start < len(ordered); start += size {
		end := start + size
		if end > len(ordered) {
			end = len(ordered)
		}
		batch := &sequencer.Unit{Name: "batch"}
		for _, u := range ordered[start:end] {
			batch.Records = append(batch.Records, u.Records...)
		}
		units = append(units, batch)
	}
	return units
}

// drive feeds units through the apply engine, pulling peers in ahead of
// individual units and skipping anything already processed this run.
func (p *Planner) drive(ctx context.Context, rc *RunContext, units []*sequencer.Unit, byName map[string]*sequencer.Record) {
	for _, unit := range units {
		if ctx.Err() != nil {
			rc.Interrupted = true
			return
		}

		// Never apply a unit twice to the same package within a run.
		pending := unit.Records[:0:0]
		for _, r := range unit.Records {
			if !rc.Processed(r.Name) {
				pending = append(pending, r)
			}
		}
		if len(pending) == 0 {
			continue
		}
		unit = &sequencer.Unit{Name: unit.Name, Records: pending}

		// Peer pull-in for individual units: upgrade discovered,
		// unprocessed peers first. One level only; peers-of-peers are
		// not chased.
		if !unit.Batch() {
			for _, peer := range unit.Records[0].Peers {
				r, discovered := byName[peer]
				if !discovered || rc.Processed(peer) {
					continue
				}
				p.Log.Debug("upgrading peer first", "package", unit.Name, "peer", peer)
				peerUnit := &sequencer.Unit{Name: peer, Records: []*sequencer.Record{r}}
				p.notify(peerUnit)
				rc.record(p.Engine.Apply(ctx, peerUnit))
			}
		}

		p.notify(unit)
		rc.record(p.Engine.Apply(ctx, unit))
	}
}

// notify reports a unit to the OnUnit observer, if one is set.
func (p *Planner) notify(unit *sequencer.Unit) {
	if p.OnUnit != nil {
		p.OnUnit(unit)
	}
}
