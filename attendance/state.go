// Package attendance owns the mutable attendance snapshot, its clamping
// setters and persistence, and the per-date risk description.
package attendance

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/policy"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is the flat attendance record. It is also the persisted format.
type Snapshot struct {
	Warnings             int      `json:"warnings"`
	ExtraCallouts        int      `json:"extraCallouts"`
	OldestWarningExpires string   `json:"oldestWarningExpires"`
	SimDates             []string `json:"simDates"`
}

// Copy returns a snapshot that shares no memory with s.
func (s Snapshot) Copy() Snapshot {
	s.SimDates = append([]string{}, s.SimDates...)
	return s
}

// HasSimDate reports whether date (ISO string) is already simulated.
func (s Snapshot) HasSimDate(date string) bool {
	for _, d := range s.SimDates {
		if d == date {
			return true
		}
	}
	return false
}

// Input converts the snapshot into calculator input.
func (s Snapshot) Input(loc *time.Location) policy.Input {
	return policy.Input{
		Warnings:             s.Warnings,
		ExtraCallouts:        s.ExtraCallouts,
		SimulatedCallouts:    len(s.SimDates),
		OldestWarningExpires: calendar.Parse(s.OldestWarningExpires, loc),
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is the single-owner attendance record. It does no locking: the
// owner serializes mutations and the derivations that follow them.
type State struct {
	policy   policy.Constants
	store    KV
	location *time.Location
	logger   *log.Logger
	snap     Snapshot
}

// Load builds a State from whatever is persisted in store, merged over the
// defaults. Unreadable or malformed records yield the defaults. Loaded
// values are clamped like any other write.
func Load(ctx context.Context, store KV, c policy.Constants, loc *time.Location, logger *log.Logger) *State {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Default()
	}
	s := &State{policy: c, store: store, location: loc, logger: logger, snap: Snapshot{SimDates: []string{}}}

	if store == nil {
		return s
	}
	raw, ok, err := store.Get(ctx, StateKey)
	if err != nil {
		logger.Printf("attendance: failed to read state, using defaults: %v", err)
		return s
	}
	if !ok || raw == "" {
		return s
	}

	// Fields are decoded one by one so a single bad value only resets itself.
	var rec map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		logger.Printf("attendance: stored state is malformed, using defaults: %v", err)
		return s
	}

	s.snap.Warnings = clampCount(decodeNumber(rec["warnings"]), c.MaxActiveWarnings())
	s.snap.ExtraCallouts = clampCount(decodeNumber(rec["extraCallouts"]), c.MaxExtraCallouts)
	s.snap.OldestWarningExpires = strings.TrimSpace(decodeString(rec["oldestWarningExpires"]))
	for _, d := range decodeStrings(rec["simDates"]) {
		s.addSimDate(d)
	}
	// simDate is the single-date field of older records.
	if d := decodeString(rec["simDate"]); d != "" {
		s.addSimDate(d)
	}
	return s
}

// Snapshot returns a copy of the current record.
func (s *State) Snapshot() Snapshot { return s.snap.Copy() }

// Policy returns the constants the state clamps against.
func (s *State) Policy() policy.Constants { return s.policy }

// Location is where ISO dates are read.
func (s *State) Location() *time.Location { return s.location }

// Occurrences computes the occurrence view of the current record.
func (s *State) Occurrences() policy.Occurrences {
	return policy.Compute(s.policy, s.snap.Input(s.location))
}

// =============================================================================
// SETTERS - each clamps, then persists
// =============================================================================

// SetWarnings stores value clamped to [0, MaxWarnings-1]. A non-nil error
// only means the write to the store failed; the new value is kept.
func (s *State) SetWarnings(ctx context.Context, value float64) error {
	s.snap.Warnings = clampCount(value, s.policy.MaxActiveWarnings())
	return s.persist(ctx)
}

// SetExtraCallouts stores value clamped to [0, MaxExtraCallouts].
func (s *State) SetExtraCallouts(ctx context.Context, value float64) error {
	s.snap.ExtraCallouts = clampCount(value, s.policy.MaxExtraCallouts)
	return s.persist(ctx)
}

// SetOldestWarningExpires stores an ISO date, or clears it with "".
// An unparsable string is kept as entered and treated as absent by readers.
func (s *State) SetOldestWarningExpires(ctx context.Context, date string) error {
	s.snap.OldestWarningExpires = normalizeDate(date, s.location)
	return s.persist(ctx)
}

// AddSimDate appends a simulated call-out date. Duplicates and empty input
// are ignored; added reports whether the set changed.
func (s *State) AddSimDate(ctx context.Context, date string) (added bool, err error) {
	if !s.addSimDate(date) {
		return false, nil
	}
	return true, s.persist(ctx)
}

// RemoveSimDate drops a simulated call-out date.
func (s *State) RemoveSimDate(ctx context.Context, date string) (removed bool, err error) {
	date = normalizeDate(date, s.location)
	kept := s.snap.SimDates[:0]
	for _, d := range s.snap.SimDates {
		if d == date {
			removed = true
			continue
		}
		kept = append(kept, d)
	}
	s.snap.SimDates = kept
	if !removed {
		return false, nil
	}
	return true, s.persist(ctx)
}

// Replace overwrites the whole record (scenario loading), clamping every
// field and de-duplicating dates.
func (s *State) Replace(ctx context.Context, snap Snapshot) error {
	s.snap = Snapshot{
		Warnings:             clampCount(float64(snap.Warnings), s.policy.MaxActiveWarnings()),
		ExtraCallouts:        clampCount(float64(snap.ExtraCallouts), s.policy.MaxExtraCallouts),
		OldestWarningExpires: normalizeDate(snap.OldestWarningExpires, s.location),
		SimDates:             []string{},
	}
	for _, d := range snap.SimDates {
		s.addSimDate(d)
	}
	return s.persist(ctx)
}

func (s *State) addSimDate(date string) bool {
	date = normalizeDate(date, s.location)
	if date == "" || s.snap.HasSimDate(date) {
		return false
	}
	s.snap.SimDates = append(s.snap.SimDates, date)
	return true
}

func (s *State) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	data, err := json.Marshal(s.snap)
	if err != nil {
		return fmt.Errorf("%w: encode state: %v", ErrPersist, err)
	}
	if err := s.store.Set(ctx, StateKey, string(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// clampCount maps any number into [0, max]. NaN becomes 0 and fractions are
// truncated, so clamping twice gives the same result as clamping once.
func clampCount(v float64, max int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > float64(max) {
		return max
	}
	return int(math.Floor(v))
}

// ParseNumber reads free-form numeric input. Anything non-numeric is 0.
func ParseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// decodeNumber reads a stored count written as a JSON number or a numeric
// string. Anything else is 0.
func decodeNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return ParseNumber(str)
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return v
}

// decodeString reads a stored string field. Non-strings are "".
func decodeString(raw json.RawMessage) string {
	var str string
	if len(raw) == 0 || json.Unmarshal(raw, &str) != nil {
		return ""
	}
	return str
}

// decodeStrings reads a stored list of strings, skipping non-string items.
func decodeStrings(raw json.RawMessage) []string {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if str := decodeString(item); str != "" {
			out = append(out, str)
		}
	}
	return out
}

// normalizeDate trims input and rewrites valid dates to canonical ISO form.
func normalizeDate(date string, loc *time.Location) string {
	date = strings.TrimSpace(date)
	if d := calendar.Parse(date, loc); d.Valid() {
		return d.String()
	}
	return date
}
