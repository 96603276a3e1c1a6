package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/blackwell-systems/depup/internal/risk"
)

func TestParseTiers(t *testing.T) {
	tiers, err := parseTiers([]string{"safe", "high"})
	if err != nil {
		t.Fatalf("parseTiers() failed: %v", err)
	}
	if !tiers[risk.TierSafe] || !tiers[risk.TierHigh] {
		t.Errorf("tiers = %v, want safe and high enabled", tiers)
	}
	if tiers[risk.TierMedium] {
		t.Error("medium should not be enabled")
	}
}

func TestParseTiers_EmptyMeansAll(t *testing.T) {
	tiers, err := parseTiers(nil)
	if err != nil {
		t.Fatalf("parseTiers() failed: %v", err)
	}
	if tiers != nil {
		t.Errorf("expected nil filter for empty input, got %v", tiers)
	}
}

func TestParseTiers_RejectsUnknownName(t *testing.T) {
	if _, err := parseTiers([]string{"safe", "yolo"}); err == nil {
		t.Error("expected error for unknown tier name")
	}
}

func TestToSet(t *testing.T) {
	if toSet(nil) != nil {
		t.Error("expected nil set for empty input")
	}

	set := toSet([]string{"react", "vue"})
	if !set["react"] || !set["vue"] || set["angular"] {
		t.Errorf("set = %v", set)
	}
}

func TestNewLogger_VerboseToggle(t *testing.T) {
	oldVerbose := verbose
	defer func() { verbose = oldVerbose }()

	verbose = false
	if log := newLogger(); log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("quiet logger should not enable debug level")
	}

	verbose = true
	if log := newLogger(); !log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("verbose logger should enable debug level")
	}
}
