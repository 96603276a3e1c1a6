// Package sequencer orders discovered packages for upgrading. Ordering is
// table-driven: a static priority table gives known packages an ordinal,
// ecosystem tags group packages that must move together, and a fixed
// ecosystem precedence puts the groups in the order that minimizes
// cross-ecosystem peer conflicts. It is deliberately not a constraint
// solver.
package sequencer

import (
	"sort"
	"strings"

	"github.com/blackwell-systems/depup/internal/risk"
)

// Record is one upgradeable package as produced by discovery. Fields are
// computed once and never mutated afterwards.
type Record struct {
	Name    string
	Current string
	Latest  string
	Tier    risk.Tier

	// Peers are packages that should be upgraded before or together
	// with this one when processed individually.
	Peers []string

	// Ecosystem is the coordinated-upgrade group tag, empty when the
	// package belongs to none.
	Ecosystem string

	// Dev marks devDependencies so installs land in the right section.
	Dev bool
}

// Unit is one planned action for the apply engine: a single record, or a
// named group applied atomically.
type Unit struct {
	// Name is the package name for singles, the ecosystem name for
	// groups.
	Name    string
	Records []*Record
}

// Batch reports whether the unit is a multi-package group.
func (u *Unit) Batch() bool { return len(u.Records) > 1 }

// MaxTier returns the highest risk tier among the unit's records, which
// decides the validation gate for the whole unit.
func (u *Unit) MaxTier() risk.Tier {
	max := risk.TierSafe
	for _, r := range u.Records {
		if r.Tier == risk.TierUnknown {
			return risk.TierUnknown
		}
		if r.Tier > max {
			max = r.Tier
		}
	}
	return max
}

// unlistedOrdinal sorts packages missing from the priority table last.
const unlistedOrdinal = 1 << 20

// priorityTable assigns explicit ordinal positions. Lower upgrades first.
// The numbers encode operational experience: frameworks before their
// companions, build tooling before the dev tools that lint its output.
var priorityTable = map[string]int{
	"react":            10,
	"react-dom":        11,
	"react-router":     20,
	"react-router-dom": 21,
	"vue":              10,
	"vue-router":       20,
	"@angular/core":    10,
	"@angular/common":  11,
	"@angular/router":  20,
	"@mui/material":    30,
	"@emotion/react":   31,
	"@emotion/styled":  32,
	"typescript":       40,
	"webpack":          50,
	"vite":             50,
	"@types/react":     60,
	"@types/react-dom": 61,
	"@types/node":      62,
	"eslint":           70,
	"prettier":         71,
}

// peerTable declares the advisory peer relationships the apply loop pulls
// in ahead of an individual upgrade.
var peerTable = map[string][]string{
	"react":            {"react-dom"},
	"react-dom":        {"react"},
	"react-router-dom": {"react-router"},
	"@mui/material":    {"@emotion/react", "@emotion/styled"},
	"@angular/core":    {"@angular/common"},
	"@angular/common":  {"@angular/core"},
	"vue-router":       {"vue"},
}

// ecosystemExact and ecosystemPrefixes tag packages with their
// coordinated-upgrade group.
var ecosystemExact = map[string]string{
	"react":            "react",
	"react-dom":        "react",
	"react-router":     "react",
	"react-router-dom": "react",
	"vue":              "vue",
	"vue-router":       "vue",
	"vuex":             "vue",
	"pinia":            "vue",
	"@mui/material":       "material-ui",
	"@mui/icons-material": "material-ui",
	"@mui/system":         "material-ui",
	"@emotion/react":      "material-ui",
	"@emotion/styled":     "material-ui",
	"eslint":   "lint",
	"prettier": "lint",
}

var ecosystemPrefixes = []struct {
	prefix string
	tag    string
}{
	{"@angular/", "angular"},
	{"@aws-sdk/", "aws-sdk"},
	{"@types/", "types"},
	{"eslint-", "lint"},
	{"@typescript-eslint/", "lint"},
}

// ecosystemPrecedence is the fixed concatenation order of the groups:
// primary UI frameworks first, companion type definitions after them,
// lint tooling last. Untagged packages follow every named group.
var ecosystemPrecedence = []string{
	"react", "vue", "angular", "material-ui", "aws-sdk", "types", "lint",
}

// Sequencer builds upgrade sequences and coordinated groups. Custom
// ecosystems from configuration extend the built-in tables.
type Sequencer struct {
	customTags map[string]string
	precedence []string
}

// New returns a Sequencer with the built-in tables.
func New() *Sequencer {
	precedence := make([]string, len(ecosystemPrecedence))
	copy(precedence, ecosystemPrecedence)
	return &Sequencer{
		customTags: make(map[string]string),
		precedence: precedence,
	}
}

// AddEcosystem registers a custom coordinated group. Custom groups take
// precedence over built-in tags for their member packages and sort after
// the built-in groups in declaration order.
func (s *Sequencer) AddEcosystem(name string, packages []string) {
	for _, pkg := range packages {
		s.customTags[pkg] = name
	}
	for _, existing := range s.precedence {
		if existing == name {
			return
		}
	}
	s.precedence = append(s.precedence, name)
}

// Tag returns the ecosystem tag for a package name, empty when untagged.
func (s *Sequencer) Tag(name string) string {
	if tag, ok := s.customTags[name]; ok {
		return tag
	}
	if tag, ok := ecosystemExact[name]; ok {
		return tag
	}
	for _, rule := range ecosystemPrefixes {
		if strings.HasPrefix(name, rule.prefix) {
			return rule.tag
		}
	}
	return ""
}

// Peers returns the declared peer set for a package name.
func Peers(name string) []string {
	return peerTable[name]
}

// Ordinal returns the static priority position for a package name.
func Ordinal(name string) int {
	if ord, ok := priorityTable[name]; ok {
		return ord
	}
	return unlistedOrdinal
}

// BuildSequence orders records into single-package units: grouped by
// ecosystem tag, groups concatenated in precedence order, members sorted
// by ordinal, ties broken by discovery order.
func (s *Sequencer) BuildSequence(records []*Record) []*Unit {
	sorted := s.sortRecords(records)
	units := make([]*Unit, 0, len(sorted))
	for _, r := range sorted {
		units = append(units, &Unit{Name: r.Name, Records: []*Record{r}})
	}
	return units
}

// BuildGroups splits records into coordinated ecosystem groups (two or
// more members sharing a tag) and the leftover sequence of individual
// units. Groups come back in precedence order.
func (s *Sequencer) BuildGroups(records []*Record) ([]*Unit, []*Unit) {
	byTag := make(map[string][]*Record)
	var rest []*Record

	for _, r := range records {
		if r.Ecosystem == "" {
			rest = append(rest, r)
			continue
		}
		byTag[r.Ecosystem] = append(byTag[r.Ecosystem], r)
	}

	var groups []*Unit
	for _, tag := range s.precedence {
		members := byTag[tag]
		delete(byTag, tag)
		if len(members) == 0 {
			continue
		}
		if len(members) == 1 {
			rest = append(rest, members[0])
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			return Ordinal(members[i].Name) < Ordinal(members[j].Name)
		})
		groups = append(groups, &Unit{Name: tag, Records: members})
	}

	// Tags outside the precedence list (seen only via records built
	// elsewhere) still sequence individually.
	for _, members := range byTag {
		rest = append(rest, members...)
	}

	return groups, s.BuildSequence(rest)
}

// sortRecords applies the full ordering: ecosystem precedence, then
// ordinal, then discovery order (stable sort over manifest order).
func (s *Sequencer) sortRecords(records []*Record) []*Record {
	sorted := make([]*Record, len(records))
	copy(sorted, records)

	rank := make(map[string]int, len(s.precedence))
	for i, tag := range s.precedence {
		rank[tag] = i
	}
	tagRank := func(tag string) int {
		if tag == "" {
			return len(s.precedence) + 1
		}
		if r, ok := rank[tag]; ok {
			return r
		}
		return len(s.precedence)
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := tagRank(sorted[i].Ecosystem), tagRank(sorted[j].Ecosystem)
		if ri != rj {
			return ri < rj
		}
		return Ordinal(sorted[i].Name) < Ordinal(sorted[j].Name)
	})

	return sorted
}
