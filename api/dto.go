/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the attendance domain types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  State:
    StateDTO, OccurrencesDTO, ExpirationDTO, MutationResponse
    SetValueRequest, SetDateRequest

  Holidays:
    HolidayDTO, HolidayMatchDTO

  Projections:
    DescriptionDTO, TimelineDTO, MarkerDTO

  Misc:
    PolicyDTO, ThemeDTO, ScenarioDTO, LoadScenarioRequest, ErrorResponse

NUMBERS:
  Number accepts a JSON number or a numeric string. Anything else decodes
  to 0 and is clamped by the state setters. Only syntactically invalid
  JSON is rejected.

SEE ALSO:
  - handlers.go: Uses these types
  - attendance/state.go: Snapshot
*/
package api

import (
	"bytes"

	json "github.com/goccy/go-json"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/policy"
	"github.com/warp/attendance-engine/timeline"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Number is a lenient numeric field.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(attendance.ParseNumber(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// SetValueRequest is the body of the numeric state setters.
type SetValueRequest struct {
	Value Number `json:"value"`
}

// SetDateRequest is the body of the date state setters.
type SetDateRequest struct {
	Date string `json:"date"`
}

// SetThemeRequest is the body of PUT /api/theme.
type SetThemeRequest struct {
	Theme string `json:"theme"`
}

// LoadScenarioRequest selects a demo scenario. scenario_id is accepted as an
// alias of id.
type LoadScenarioRequest struct {
	ID         string `json:"id"`
	ScenarioID string `json:"scenario_id,omitempty"`
}

func (r LoadScenarioRequest) scenarioID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.ScenarioID
}

// =============================================================================
// STATE
// =============================================================================

// StateDTO is the current snapshot with its derived view.
type StateDTO struct {
	Warnings             int            `json:"warnings"`
	ExtraCallouts        int            `json:"extra_callouts"`
	OldestWarningExpires string         `json:"oldest_warning_expires"`
	SimDates             []string       `json:"sim_dates"`
	Occurrences          OccurrencesDTO `json:"occurrences"`
}

// OccurrencesDTO is the calculator output.
type OccurrencesDTO struct {
	Total           int            `json:"total"`
	Remaining       int            `json:"remaining"`
	MaxSafe         int            `json:"max_safe"`
	Risk            string         `json:"risk"`
	MeterPct        float64        `json:"meter_pct"`
	AfterExpiration *ExpirationDTO `json:"after_expiration,omitempty"`
}

// ExpirationDTO is the headroom once the oldest warning expires.
type ExpirationDTO struct {
	ExpiresOn      string `json:"expires_on"`
	WarningsAfter  int    `json:"warnings_after"`
	RemainingAfter int    `json:"remaining_after"`
}

// MutationResponse is returned by every state setter. Persisted is false
// when the store rejected the write; the change is applied regardless.
type MutationResponse struct {
	State        StateDTO `json:"state"`
	Changed      *bool    `json:"changed,omitempty"`
	Persisted    bool     `json:"persisted"`
	PersistError string   `json:"persist_error,omitempty"`
}

// PolicyDTO exposes the policy constants and derived limits.
type PolicyDTO struct {
	policy.Constants
	MaxSafeOccurrences int `json:"max_safe_occurrences"`
	MaxActiveWarnings  int `json:"max_active_warnings"`
	NearThresholdBand  int `json:"near_threshold_band"`
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayDTO is one holiday entry.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// HolidayListDTO is the index contents.
type HolidayListDTO struct {
	Loaded   bool         `json:"loaded"`
	Holidays []HolidayDTO `json:"holidays"`
}

// HolidayMatchDTO is the result of looking up one date.
type HolidayMatchDTO struct {
	Date     string      `json:"date"`
	Exact    *HolidayDTO `json:"exact,omitempty"`
	Adjacent *HolidayDTO `json:"adjacent,omitempty"`
}

// =============================================================================
// PROJECTIONS
// =============================================================================

// DescriptionDTO is the risk description of one candidate date.
type DescriptionDTO struct {
	Date             string         `json:"date"`
	Status           string         `json:"status"`
	Holiday          *HolidayDTO    `json:"holiday,omitempty"`
	NearHoliday      *HolidayDTO    `json:"near_holiday,omitempty"`
	AlreadySimulated bool           `json:"already_simulated"`
	Occurrences      OccurrencesDTO `json:"occurrences"`
}

// TimelineDTO is a one-year projection.
type TimelineDTO struct {
	Start   string      `json:"start"`
	End     string      `json:"end"`
	Markers []MarkerDTO `json:"markers"`
}

// MarkerDTO is one positioned timeline event.
type MarkerDTO struct {
	Kind   string  `json:"kind"`
	Label  string  `json:"label"`
	Date   string  `json:"date"`
	Offset int     `json:"offset"`
	Pct    float64 `json:"pct"`
}

// =============================================================================
// MISC
// =============================================================================

// ThemeDTO is the stored display preference.
type ThemeDTO struct {
	Theme     string `json:"theme"`
	Persisted *bool  `json:"persisted,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ScenarioLoadedResponse is returned after a scenario replaces the state.
type ScenarioLoadedResponse struct {
	Scenario ScenarioDTO `json:"scenario"`
	MutationResponse
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toOccurrencesDTO(c policy.Constants, occ policy.Occurrences) OccurrencesDTO {
	dto := OccurrencesDTO{
		Total:     occ.Total,
		Remaining: occ.Remaining,
		MaxSafe:   c.MaxSafeOccurrences(),
		Risk:      string(occ.Risk),
		MeterPct:  occ.MeterPct.InexactFloat64(),
	}
	if a := occ.AfterExpiration; a != nil {
		dto.AfterExpiration = &ExpirationDTO{
			ExpiresOn:      a.ExpiresOn.String(),
			WarningsAfter:  a.WarningsAfter,
			RemainingAfter: a.RemainingAfter,
		}
	}
	return dto
}

func toStateDTO(c policy.Constants, snap attendance.Snapshot, occ policy.Occurrences) StateDTO {
	sims := snap.SimDates
	if sims == nil {
		sims = []string{}
	}
	return StateDTO{
		Warnings:             snap.Warnings,
		ExtraCallouts:        snap.ExtraCallouts,
		OldestWarningExpires: snap.OldestWarningExpires,
		SimDates:             sims,
		Occurrences:          toOccurrencesDTO(c, occ),
	}
}

func toHolidayDTO(h holiday.Holiday) HolidayDTO {
	return HolidayDTO{Date: h.Date.String(), Name: h.Name}
}

func toHolidayDTOs(list []holiday.Holiday) []HolidayDTO {
	dtos := make([]HolidayDTO, len(list))
	for i, h := range list {
		dtos[i] = toHolidayDTO(h)
	}
	return dtos
}

func toHolidayPtr(h *holiday.Holiday) *HolidayDTO {
	if h == nil {
		return nil
	}
	dto := toHolidayDTO(*h)
	return &dto
}

func toDescriptionDTO(c policy.Constants, d attendance.Description) DescriptionDTO {
	return DescriptionDTO{
		Date:             d.Date,
		Status:           string(d.Status),
		Holiday:          toHolidayPtr(d.Holiday),
		NearHoliday:      toHolidayPtr(d.NearHoliday),
		AlreadySimulated: d.AlreadySimulated,
		Occurrences:      toOccurrencesDTO(c, d.Occurrences),
	}
}

func toTimelineDTO(tl timeline.Timeline, markers []timeline.Marker) TimelineDTO {
	dtos := make([]MarkerDTO, len(markers))
	for i, m := range markers {
		dtos[i] = MarkerDTO{
			Kind:   string(m.Kind),
			Label:  m.Label,
			Date:   m.Date.String(),
			Offset: m.Offset,
			Pct:    m.Pct.InexactFloat64(),
		}
	}
	return TimelineDTO{Start: tl.Start.String(), End: tl.End.String(), Markers: dtos}
}
