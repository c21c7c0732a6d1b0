/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built attendance snapshots that replace the current state
	for demos. Each scenario exercises one behavior of the calculator.

AVAILABLE SCENARIOS:

	baseline:          2 warnings + 1 extra call-out, 7 of 11, comfortable
	at-threshold:      3 warnings + 2 extras + 1 simulated, 12 of 11
	post-expiration:   1 warning with an expiration date, 11 after expiry
	holiday-adjacency: simulated call-outs around Christmas
	clean-slate:       no warnings, nothing simulated

HOW SCENARIOS WORK:
 1. Look up the snapshot by ID
 2. Replace the attendance state (values are clamped like any update)
 3. Persist it through the state store

USAGE VIA API:

	POST /api/scenarios/load
	{"id": "at-threshold"}

ADDING NEW SCENARIOS:
 1. Add an entry to 'scenarios' with ID, name, description and snapshot

SEE ALSO:
  - handlers.go: State handlers
  - attendance/state.go: State.Replace
*/
package api

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/warp/attendance-engine/attendance"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenario struct {
	ScenarioDTO
	Snapshot attendance.Snapshot
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "baseline",
			Name:        "Baseline",
			Description: "Two warnings and one extra call-out: 7 of 11 occurrences used",
		},
		Snapshot: attendance.Snapshot{Warnings: 2, ExtraCallouts: 1},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "at-threshold",
			Name:        "At Threshold",
			Description: "Three warnings, two extra call-outs and Christmas simulated: one past the limit",
		},
		Snapshot: attendance.Snapshot{
			Warnings:      3,
			ExtraCallouts: 2,
			SimDates:      []string{"2025-12-25"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "post-expiration",
			Name:        "Post Expiration",
			Description: "One warning expiring soon: full headroom once it drops off",
		},
		Snapshot: attendance.Snapshot{
			Warnings:             1,
			OldestWarningExpires: "2026-03-01",
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "holiday-adjacency",
			Name:        "Holiday Adjacency",
			Description: "Call-outs simulated the day before and the day of Christmas",
		},
		Snapshot: attendance.Snapshot{
			Warnings: 1,
			SimDates: []string{"2025-12-24", "2025-12-25"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "clean-slate",
			Name:        "Clean Slate",
			Description: "No warnings, no call-outs",
		},
		Snapshot: attendance.Snapshot{},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns all available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the most recently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario replaces the attendance state with a predefined snapshot.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, ok := findScenario(req.scenarioID())
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario: "+req.scenarioID(), nil)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	err := h.State.Replace(r.Context(), s.Snapshot)
	h.currentScenario = s.ID
	if err != nil {
		h.logger().Printf("Warning: failed to persist scenario %s: %v", s.ID, err)
	}
	if h.Metrics != nil {
		h.Metrics.ObserveMutation("scenario", h.State.Occurrences().Remaining, err)
	}

	resp := ScenarioLoadedResponse{
		Scenario: s.ScenarioDTO,
		MutationResponse: MutationResponse{
			State:     h.stateDTO(),
			Persisted: err == nil,
		},
	}
	if err != nil {
		resp.PersistError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
