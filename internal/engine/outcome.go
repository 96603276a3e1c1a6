package engine

import (
	"github.com/blackwell-systems/depup/internal/conflict"
	"github.com/blackwell-systems/depup/internal/risk"
)

// Status is the terminal state of processing one package.
type Status int

const (
	StatusSuccessful Status = iota
	StatusFailed
	StatusSkipped
)

// String returns the status name as persisted in run history.
func (s Status) String() string {
	switch s {
	case StatusSuccessful:
		return "successful"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Outcome records the result of processing one package. Outcomes are
// append-only: once produced they are never mutated, only deduplicated
// at the end of a run.
type Outcome struct {
	Package string
	Status  Status

	// Old and New are the declared and target versions. For failures,
	// New is the version that was attempted.
	Old string
	New string

	// Tier is set on successful outcomes.
	Tier risk.Tier

	// ReasonKind and Detail explain failures well enough for a human
	// to decide between retry, coordinated upgrade, and manual fixes.
	ReasonKind conflict.Kind
	Detail     string

	// Reason is the skip explanation for skipped outcomes.
	Reason string
}

// Successful builds a committed-upgrade outcome.
func Successful(name, old, new string, tier risk.Tier) Outcome {
	return Outcome{Package: name, Status: StatusSuccessful, Old: old, New: new, Tier: tier}
}

// Failed builds a rolled-back outcome.
func Failed(name, old, target string, kind conflict.Kind, detail string) Outcome {
	return Outcome{Package: name, Status: StatusFailed, Old: old, New: target, ReasonKind: kind, Detail: detail}
}

// Skipped builds a not-attempted outcome.
func Skipped(name, reason string) Outcome {
	return Outcome{Package: name, Status: StatusSkipped, Reason: reason}
}

// Dedupe removes outcomes repeating the same (package, old, new) triple,
// keeping the first occurrence.
func Dedupe(outcomes []Outcome) []Outcome {
	type key struct{ name, old, new string }
	seen := make(map[key]bool, len(outcomes))
	out := outcomes[:0:0]
	for _, o := range outcomes {
		k := key{o.Package, o.Old, o.New}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, o)
	}
	return out
}
