package engine

import (
	"context"
	"fmt"

	"github.com/blackwell-systems/depup/internal/npm"
	"github.com/blackwell-systems/depup/internal/risk"
)

// Strictness overrides the tier-based validation gate selection.
type Strictness int

const (
	// StrictnessAuto picks the gate from the unit's risk tier.
	StrictnessAuto Strictness = iota

	// StrictnessNone skips validation entirely.
	StrictnessNone

	// StrictnessQuick always runs only the lock-refresh check.
	StrictnessQuick

	// StrictnessFull always runs the full gate.
	StrictnessFull
)

// String returns the strictness name as used in flags and config.
func (s Strictness) String() string {
	switch s {
	case StrictnessNone:
		return "none"
	case StrictnessQuick:
		return "quick"
	case StrictnessFull:
		return "full"
	default:
		return "auto"
	}
}

// ParseStrictness converts a flag/config value to a Strictness.
func ParseStrictness(s string) (Strictness, error) {
	switch s {
	case "auto", "":
		return StrictnessAuto, nil
	case "none":
		return StrictnessNone, nil
	case "quick":
		return StrictnessQuick, nil
	case "full":
		return StrictnessFull, nil
	default:
		return StrictnessAuto, fmt.Errorf("invalid strictness %q: must be one of: none, quick, full, auto", s)
	}
}

// validationStep is one gate check: a name for diagnostics and the npm
// arguments that run it.
type validationStep struct {
	name string
	args []string
}

// gateSteps returns the validation steps for a unit of the given tier
// under the engine's strictness setting. Safe and low tiers get the
// lightweight lock refresh; medium, high, and unknown get the full gate.
func (e *Engine) gateSteps(tier risk.Tier) []validationStep {
	strictness := e.Strictness
	if strictness == StrictnessAuto {
		if tier.NeedsFullGate() {
			strictness = StrictnessFull
		} else {
			strictness = StrictnessQuick
		}
	}
	return e.stepsFor(strictness)
}

// stepsFor maps a resolved strictness to its concrete steps.
func (e *Engine) stepsFor(strictness Strictness) []validationStep {
	switch strictness {
	case StrictnessNone:
		return nil
	case StrictnessQuick:
		return []validationStep{
			{name: "lock refresh", args: []string{"install", "--package-lock-only"}},
		}
	default:
		steps := []validationStep{
			{name: "install check", args: []string{"install"}},
		}
		if npm.HasTypeScript(e.Dir) {
			steps = append(steps, validationStep{
				name: "type check",
				args: []string{"exec", "--no-install", "--", "tsc", "--noEmit"},
			})
		}
		if m, err := npm.ReadManifest(e.Dir); err == nil && m.HasTestScript() {
			steps = append(steps, validationStep{
				name: "test suite",
				args: []string{"test", "--silent"},
			})
		}
		return steps
	}
}

// runGate executes the steps in order. The first failure is authoritative
// and subsequent steps are skipped.
func (e *Engine) runGate(ctx context.Context, steps []validationStep) (stepName string, res npm.Result) {
	for _, step := range steps {
		e.Log.Debug("validation step", "step", step.name)
		res = e.Runner.Run(ctx, e.Dir, step.args...)
		if !res.OK {
			return step.name, res
		}
	}
	return "", npm.Result{OK: true}
}
