/*
handlers.go - HTTP API handlers for the attendance risk estimator

PURPOSE:
  Exposes the attendance state, occurrence calculator, holiday index and
  timeline projector via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to domain logic.

ENDPOINTS:
  State:
    GET    /api/state                         Snapshot + occurrences
    PUT    /api/state/warnings                {"value": n}
    PUT    /api/state/extra-callouts          {"value": n}
    PUT    /api/state/oldest-warning-expires  {"date": "YYYY-MM-DD"}
    GET    /api/state/simulations             Describe every simulated date
    POST   /api/state/simulations             {"date": "YYYY-MM-DD"}
    DELETE /api/state/simulations/{date}

  Derived:
    GET    /api/occurrences
    GET    /api/policy
    GET    /api/describe/{date}
    GET    /api/timeline?today=&order=chronological

  Holidays:
    GET    /api/holidays
    GET    /api/holidays/upcoming?days=&from=
    GET    /api/holidays/{date}

  Preferences:
    GET    /api/theme
    PUT    /api/theme                         {"theme": "light"|"dark"}

ARCHITECTURE:
  Handler owns the single attendance.State. The state has no lock of its
  own, so every read and mutation goes through Handler.mu: a mutation and
  the view derived from it complete before the next request sees the state.

ERROR HANDLING:
  - 400: Malformed JSON body, unparseable query parameter
  - 404: Unknown scenario
  - 200 with "persisted": false: the store rejected a write; the change
    is still applied in memory
  Numeric fields are never rejected; out-of-range values are clamped.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/metrics"
	"github.com/warp/attendance-engine/policy"
	"github.com/warp/attendance-engine/timeline"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	State     *attendance.State
	Holidays  *holiday.Index
	Projector *timeline.Projector

	// Prefs holds the theme slot, normally the same store as the state.
	Prefs attendance.KV

	// Optional.
	Metrics *metrics.Metrics
	Logger  *log.Logger
	Now     func() time.Time

	mu sync.Mutex

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a handler over state, its store and the holiday index.
func NewHandler(state *attendance.State, prefs attendance.KV, holidays *holiday.Index) *Handler {
	h := &Handler{
		State:    state,
		Holidays: holidays,
		Prefs:    prefs,
		Logger:   log.Default(),
		Now:      time.Now,
	}
	h.Projector = &timeline.Projector{
		Holidays: holidays,
		Location: state.Location(),
		Now:      func() time.Time { return h.clock() },
	}
	return h
}

// =============================================================================
// STATE HANDLERS
// =============================================================================

// GetState returns the snapshot with its derived occurrences.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	dto := h.stateDTO()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, dto)
}

// SetWarnings sets the active warning count (clamped).
func (h *Handler) SetWarnings(w http.ResponseWriter, r *http.Request) {
	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	err := h.State.SetWarnings(r.Context(), float64(req.Value))
	h.respondMutation(w, "warnings", nil, err)
}

// SetExtraCallouts sets the extra call-out count (clamped).
func (h *Handler) SetExtraCallouts(w http.ResponseWriter, r *http.Request) {
	var req SetValueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	err := h.State.SetExtraCallouts(r.Context(), float64(req.Value))
	h.respondMutation(w, "extra_callouts", nil, err)
}

// SetOldestWarningExpires sets or clears ("") the oldest expiration date.
func (h *Handler) SetOldestWarningExpires(w http.ResponseWriter, r *http.Request) {
	var req SetDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	err := h.State.SetOldestWarningExpires(r.Context(), req.Date)
	h.respondMutation(w, "oldest_warning_expires", nil, err)
}

// ListSimulations describes every simulated call-out date.
func (h *Handler) ListSimulations(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	snap := h.State.Snapshot()
	h.mu.Unlock()

	c := h.State.Policy()
	descs := attendance.DescribeAll(snap, c, h.Holidays, h.State.Location())
	dtos := make([]DescriptionDTO, len(descs))
	for i, d := range descs {
		dtos[i] = toDescriptionDTO(c, d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AddSimulation adds a simulated call-out date. Duplicates are ignored.
func (h *Handler) AddSimulation(w http.ResponseWriter, r *http.Request) {
	var req SetDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	added, err := h.State.AddSimDate(r.Context(), req.Date)
	h.respondMutation(w, "sim_dates", &added, err)
}

// RemoveSimulation removes a simulated call-out date.
func (h *Handler) RemoveSimulation(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	h.mu.Lock()
	defer h.mu.Unlock()
	removed, err := h.State.RemoveSimDate(r.Context(), date)
	h.respondMutation(w, "sim_dates", &removed, err)
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

// GetOccurrences returns the calculator output for the current state.
func (h *Handler) GetOccurrences(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	occ := h.State.Occurrences()
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, toOccurrencesDTO(h.State.Policy(), occ))
}

// GetPolicy returns the policy constants.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	c := h.State.Policy()
	writeJSON(w, http.StatusOK, PolicyDTO{
		Constants:          c,
		MaxSafeOccurrences: c.MaxSafeOccurrences(),
		MaxActiveWarnings:  c.MaxActiveWarnings(),
		NearThresholdBand:  policy.NearThresholdBand,
	})
}

// DescribeDate prices one candidate call-out date.
func (h *Handler) DescribeDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	h.mu.Lock()
	snap := h.State.Snapshot()
	h.mu.Unlock()

	c := h.State.Policy()
	desc := attendance.Describe(date, snap, c, h.Holidays, h.State.Location())
	writeJSON(w, http.StatusOK, toDescriptionDTO(c, desc))
}

// GetTimeline projects the next year of events. An absent or invalid
// today uses the server clock.
func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	today := calendar.Parse(r.URL.Query().Get("today"), h.State.Location())

	h.mu.Lock()
	snap := h.State.Snapshot()
	h.mu.Unlock()

	tl := h.Projector.Project(today, snap)
	markers := tl.Markers
	if r.URL.Query().Get("order") == "chronological" {
		markers = tl.Chronological()
	}
	writeJSON(w, http.StatusOK, toTimelineDTO(tl, markers))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the index contents in stored order.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HolidayListDTO{
		Loaded:   h.Holidays.Loaded(),
		Holidays: toHolidayDTOs(h.Holidays.All()),
	})
}

// UpcomingHolidays returns holidays within days (default 365) of from
// (default today).
func (h *Handler) UpcomingHolidays(w http.ResponseWriter, r *http.Request) {
	days := timeline.HorizonDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid days (use an integer)", err)
			return
		}
		days = n
	}

	from := h.today()
	if raw := r.URL.Query().Get("from"); raw != "" {
		from = calendar.Parse(raw, h.State.Location())
		if !from.Valid() {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", nil)
			return
		}
	}

	writeJSON(w, http.StatusOK, toHolidayDTOs(h.Holidays.UpcomingWithin(days, from)))
}

// MatchHoliday reports the exact and adjacent holiday of a date.
func (h *Handler) MatchHoliday(w http.ResponseWriter, r *http.Request) {
	date := calendar.Parse(chi.URLParam(r, "date"), h.State.Location())
	if !date.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", nil)
		return
	}

	resp := HolidayMatchDTO{Date: date.String()}
	if exact, ok := h.Holidays.ExactMatch(date); ok {
		resp.Exact = toHolidayPtr(&exact)
	}
	if adjacent, ok := h.Holidays.AdjacentMatch(date); ok {
		resp.Adjacent = toHolidayPtr(&adjacent)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// THEME HANDLERS
// =============================================================================

// GetTheme returns the stored display theme.
func (h *Handler) GetTheme(w http.ResponseWriter, r *http.Request) {
	theme := attendance.LoadTheme(r.Context(), h.Prefs)
	writeJSON(w, http.StatusOK, ThemeDTO{Theme: string(theme)})
}

// SetTheme stores the display theme. Unknown themes become light.
func (h *Handler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req SetThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	theme, err := attendance.SaveTheme(r.Context(), h.Prefs, req.Theme)
	persisted := err == nil
	if err != nil {
		h.logger().Printf("Warning: failed to persist theme: %v", err)
	}
	writeJSON(w, http.StatusOK, ThemeDTO{Theme: string(theme), Persisted: &persisted})
}

// =============================================================================
// HELPERS
// =============================================================================

// stateDTO renders the current state. Callers hold h.mu.
func (h *Handler) stateDTO() StateDTO {
	return toStateDTO(h.State.Policy(), h.State.Snapshot(), h.State.Occurrences())
}

// respondMutation writes the post-mutation state. Callers hold h.mu.
func (h *Handler) respondMutation(w http.ResponseWriter, field string, changed *bool, err error) {
	resp := MutationResponse{
		State:     h.stateDTO(),
		Changed:   changed,
		Persisted: err == nil,
	}
	if err != nil {
		resp.PersistError = err.Error()
		h.logger().Printf("Warning: failed to persist %s: %v", field, err)
	}
	if h.Metrics != nil {
		h.Metrics.ObserveMutation(field, resp.State.Occurrences.Remaining, err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) clock() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *Handler) today() calendar.Date {
	return calendar.FromTime(h.clock().In(h.State.Location()))
}

func (h *Handler) logger() *log.Logger {
	if h.Logger == nil {
		return log.Default()
	}
	return h.Logger
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
