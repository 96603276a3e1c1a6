// Package engine applies upgrade units transactionally. Each unit moves
// through Pending, Snapshotted, Installing, Validating, and ends either
// Committed or RolledBack. The snapshot is a scoped obligation: every
// exit path except commit restores the manifest and lock file
// byte-for-byte, including cancellation.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blackwell-systems/depup/internal/conflict"
	"github.com/blackwell-systems/depup/internal/npm"
	"github.com/blackwell-systems/depup/internal/sequencer"
)

// Engine runs the apply/validate/rollback cycle for upgrade units. Only
// one unit is ever in flight: install and validation mutate the shared
// manifest and lock file, so cycles never overlap.
type Engine struct {
	Runner npm.Runner
	Dir    string

	// Strictness overrides the tier-based gate selection.
	Strictness Strictness

	// DryRunProbe runs a probe install before the real one. A probe
	// peer conflict is logged and the real install proceeds anyway
	// unless AbortOnProbeConflict is set.
	DryRunProbe          bool
	AbortOnProbeConflict bool

	Log *slog.Logger

	mu sync.Mutex
}

// New creates an Engine for the project at dir with diagnostics discarded
// until a logger is attached.
func New(runner npm.Runner, dir string) *Engine {
	return &Engine{
		Runner: runner,
		Dir:    dir,
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Apply processes one unit and returns an outcome per package. Batch
// units commit or roll back as a whole: a validation failure marks every
// member failed even when one package caused it.
func (e *Engine) Apply(ctx context.Context, unit *sequencer.Unit) []Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()

	var outcomes []Outcome
	var live []*sequencer.Record

	for _, r := range unit.Records {
		switch {
		case r.Latest == "":
			outcomes = append(outcomes, Skipped(r.Name, "version unavailable"))
		case r.Current == r.Latest:
			// No-op short-circuits to committed without snapshotting.
			outcomes = append(outcomes, Skipped(r.Name, "already up to date"))
		default:
			live = append(live, r)
		}
	}
	if len(live) == 0 {
		return outcomes
	}

	// Pending -> Snapshotted. A snapshot failure abandons every sibling
	// in the batch: there is nothing safe to roll back to.
	snap, err := capture(e.Dir)
	if err != nil {
		return append(outcomes, failAll(live, conflict.KindManifestIO, err.Error())...)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := snap.restore(); rerr != nil {
			e.Log.Error("snapshot restore failed", "unit", unit.Name, "error", rerr)
		}
	}()

	// Optional dry-run probe. The real install stays authoritative: a
	// probe peer conflict only warns unless configured to abort.
	if e.DryRunProbe {
		if res := e.install(ctx, live, true); !res.OK {
			c := conflict.Interpret(res.Output)
			if c.Kind == conflict.KindPeerConflict {
				if e.AbortOnProbeConflict {
					return append(outcomes, failAll(live, conflict.KindPeerConflict, c.Detail)...)
				}
				e.Log.Warn("dry-run reported peer conflict, attempting real install",
					"unit", unit.Name, "detail", c.Detail)
			} else {
				e.Log.Debug("dry-run probe failed", "unit", unit.Name, "detail", c.Detail)
			}
		}
	}

	// Snapshotted -> Installing.
	if res := e.install(ctx, live, false); !res.OK {
		kind, detail := failureCause(ctx, res)
		return append(outcomes, failAll(live, kind, detail)...)
	}

	// Installing -> Validating.
	if stepName, res := e.runGate(ctx, e.gateSteps(unit.MaxTier())); stepName != "" {
		kind := conflict.KindValidationFailure
		detail := fmt.Sprintf("%s failed: %s", stepName, conflict.Interpret(res.Output).Detail)
		if res.TimedOut {
			kind = conflict.KindTimeout
			detail = fmt.Sprintf("%s timed out", stepName)
		}
		if ctx.Err() != nil {
			detail = "cancelled"
		}
		return append(outcomes, failAll(live, kind, detail)...)
	}

	// Validating -> Committed.
	committed = true
	for _, r := range live {
		e.Log.Debug("committed", "package", r.Name, "from", r.Current, "to", r.Latest)
		outcomes = append(outcomes, Successful(r.Name, r.Current, r.Latest, r.Tier))
	}
	return outcomes
}

// install sets every record to its target version. Production and dev
// dependencies need different save flags, so the unit installs in at most
// two invocations; the first failure is returned as the unit's result.
func (e *Engine) install(ctx context.Context, records []*sequencer.Record, dryRun bool) npm.Result {
	var prod, dev []string
	for _, r := range records {
		spec := r.Name + "@" + r.Latest
		if r.Dev {
			dev = append(dev, spec)
		} else {
			prod = append(prod, spec)
		}
	}

	if len(prod) > 0 {
		if res := e.Runner.Run(ctx, e.Dir, npm.InstallArgs(prod, false, dryRun)...); !res.OK {
			return res
		}
	}
	if len(dev) > 0 {
		if res := e.Runner.Run(ctx, e.Dir, npm.InstallArgs(dev, true, dryRun)...); !res.OK {
			return res
		}
	}
	return npm.Result{OK: true}
}

// failureCause maps a failed result to the error taxonomy.
func failureCause(ctx context.Context, res npm.Result) (conflict.Kind, string) {
	if ctx.Err() != nil {
		return conflict.KindGeneric, "cancelled"
	}
	if res.TimedOut {
		return conflict.KindTimeout, res.Output
	}
	c := conflict.Interpret(res.Output)
	return c.Kind, c.Detail
}

// failAll produces one failed outcome per record with a shared cause.
func failAll(records []*sequencer.Record, kind conflict.Kind, detail string) []Outcome {
	outcomes := make([]Outcome, 0, len(records))
	for _, r := range records {
		outcomes = append(outcomes, Failed(r.Name, r.Current, r.Latest, kind, detail))
	}
	return outcomes
}

// FinalCheck runs one full validation gate over the current project
// state, independent of any unit. Purely informational: a failure here
// never rolls back committed upgrades.
func (e *Engine) FinalCheck(ctx context.Context) (bool, string) {
	stepName, res := e.runGate(ctx, e.stepsFor(StrictnessFull))
	if stepName == "" {
		return true, ""
	}
	return false, fmt.Sprintf("%s failed: %s", stepName, conflict.Interpret(res.Output).Detail)
}
