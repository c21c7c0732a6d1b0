/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- State setters (clamping, lenient numbers, persistence failures)
- Simulated dates and risk descriptions
- Holiday queries and timeline projection
- Theme slot
*/
package api_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/api"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/calendar"
	"github.com/warp/attendance-engine/holiday"
	"github.com/warp/attendance-engine/metrics"
	"github.com/warp/attendance-engine/policy"
	"github.com/warp/attendance-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	kv      *memory.Memory
	handler *api.Handler
	server  http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	kv := memory.NewMemory()
	state := attendance.Load(context.Background(), kv, policy.Default(), time.UTC, quiet)
	holidays := holiday.NewStatic([]holiday.Holiday{
		{Date: calendar.Parse("2025-12-25", time.UTC), Name: "Christmas"},
		{Date: calendar.Parse("2026-01-01", time.UTC), Name: "New Year"},
	})

	h := api.NewHandler(state, kv, holidays)
	h.Logger = quiet
	h.Metrics = metrics.New("test")
	h.Now = func() time.Time { return time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC) }

	return &fixture{
		kv:      kv,
		handler: h,
		server:  api.NewRouter(h, api.RouterConfig{MetricsPath: "/metrics", StaticDir: t.TempDir()}),
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// STATE
// =============================================================================

func TestGetState_Defaults(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)

	state := decode[api.StateDTO](t, rec)
	assert.Equal(t, 0, state.Warnings)
	assert.Equal(t, []string{}, state.SimDates)
	assert.Equal(t, 11, state.Occurrences.Remaining)
	assert.Equal(t, "comfortable", state.Occurrences.Risk)
}

func TestSetWarnings_ClampsAndAcceptsStrings(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		body string
		want int
	}{
		{`{"value": 2}`, 2},
		{`{"value": "1"}`, 1},
		{`{"value": 9}`, 3},
		{`{"value": -2}`, 0},
		{`{"value": "lots"}`, 0},
		{`{"value": true}`, 0},
		{`{"value": 2.7}`, 2},
	}
	for _, tc := range cases {
		rec := f.do(t, http.MethodPut, "/api/state/warnings", tc.body)
		require.Equal(t, http.StatusOK, rec.Code, tc.body)

		resp := decode[api.MutationResponse](t, rec)
		assert.Equal(t, tc.want, resp.State.Warnings, tc.body)
		assert.True(t, resp.Persisted)
	}
}

func TestSetWarnings_MalformedJSON(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/api/state/warnings", `{"value":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errResp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "Invalid request body", errResp.Error)
}

func TestMutation_PersistFailureStillApplies(t *testing.T) {
	// GIVEN: A store that rejects writes
	// WHEN: Setting extra call-outs
	// THEN: 200, persisted=false, and the value is applied
	f := newFixture(t)
	f.kv.FailWrites(true)

	rec := f.do(t, http.MethodPut, "/api/state/extra-callouts", `{"value": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[api.MutationResponse](t, rec)
	assert.False(t, resp.Persisted)
	assert.NotEmpty(t, resp.PersistError)
	assert.Equal(t, 1, resp.State.ExtraCallouts)

	state := decode[api.StateDTO](t, f.do(t, http.MethodGet, "/api/state", ""))
	assert.Equal(t, 1, state.ExtraCallouts)
}

func TestSetOldestWarningExpires_AfterExpiration(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPut, "/api/state/warnings", `{"value": 1}`)

	rec := f.do(t, http.MethodPut, "/api/state/oldest-warning-expires", `{"date": "2026-03-01"}`)
	resp := decode[api.MutationResponse](t, rec)

	require.NotNil(t, resp.State.Occurrences.AfterExpiration)
	assert.Equal(t, "2026-03-01", resp.State.Occurrences.AfterExpiration.ExpiresOn)
	assert.Equal(t, 0, resp.State.Occurrences.AfterExpiration.WarningsAfter)
	assert.Equal(t, 11, resp.State.Occurrences.AfterExpiration.RemainingAfter)

	// Clearing the date drops the projection.
	resp = decode[api.MutationResponse](t, f.do(t, http.MethodPut, "/api/state/oldest-warning-expires", `{"date": ""}`))
	assert.Nil(t, resp.State.Occurrences.AfterExpiration)
}

// =============================================================================
// SIMULATIONS
// =============================================================================

func TestSimulations_AddListRemove(t *testing.T) {
	f := newFixture(t)

	resp := decode[api.MutationResponse](t, f.do(t, http.MethodPost, "/api/state/simulations", `{"date": "2025-12-24"}`))
	require.NotNil(t, resp.Changed)
	assert.True(t, *resp.Changed)

	resp = decode[api.MutationResponse](t, f.do(t, http.MethodPost, "/api/state/simulations", `{"date": "2025-12-24"}`))
	assert.False(t, *resp.Changed, "duplicate ignored")
	assert.Equal(t, []string{"2025-12-24"}, resp.State.SimDates)
	assert.Equal(t, 1, resp.State.Occurrences.Total)

	list := decode[[]api.DescriptionDTO](t, f.do(t, http.MethodGet, "/api/state/simulations", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "near_holiday", list[0].Status)
	require.NotNil(t, list[0].NearHoliday)
	assert.Equal(t, "Christmas", list[0].NearHoliday.Name)
	assert.True(t, list[0].AlreadySimulated)

	resp = decode[api.MutationResponse](t, f.do(t, http.MethodDelete, "/api/state/simulations/2025-12-24", ""))
	assert.True(t, *resp.Changed)
	assert.Empty(t, resp.State.SimDates)
}

func TestDescribeDate(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPut, "/api/state/warnings", `{"value": 2}`)
	f.do(t, http.MethodPut, "/api/state/extra-callouts", `{"value": 1}`)

	desc := decode[api.DescriptionDTO](t, f.do(t, http.MethodGet, "/api/describe/2025-12-25", ""))

	assert.Equal(t, "holiday", desc.Status)
	require.NotNil(t, desc.Holiday)
	assert.Nil(t, desc.NearHoliday)
	assert.Equal(t, 8, desc.Occurrences.Total)
	assert.Equal(t, "near_threshold", desc.Occurrences.Risk)

	desc = decode[api.DescriptionDTO](t, f.do(t, http.MethodGet, "/api/describe/not-a-date", ""))
	assert.Equal(t, "invalid", desc.Status)
}

// =============================================================================
// DERIVED VIEWS
// =============================================================================

func TestGetOccurrencesAndPolicy(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPut, "/api/state/warnings", `{"value": 3}`)

	occ := decode[api.OccurrencesDTO](t, f.do(t, http.MethodGet, "/api/occurrences", ""))
	assert.Equal(t, 9, occ.Total)
	assert.Equal(t, 2, occ.Remaining)
	assert.InDelta(t, 81.82, occ.MeterPct, 0.001)

	pol := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/policy", ""))
	assert.EqualValues(t, 3, pol["occurrences_per_warning"])
	assert.EqualValues(t, 11, pol["max_safe_occurrences"])
	assert.EqualValues(t, 3, pol["max_active_warnings"])
}

func TestGetTimeline(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/state/simulations", `{"date": "2026-02-01"}`)

	tl := decode[api.TimelineDTO](t, f.do(t, http.MethodGet, "/api/timeline?today=2025-12-01", ""))
	assert.Equal(t, "2025-12-01", tl.Start)
	assert.Equal(t, "2026-12-01", tl.End)

	kinds := make([]string, len(tl.Markers))
	for i, m := range tl.Markers {
		kinds[i] = m.Kind
	}
	assert.Equal(t, []string{"today", "simulatedCallout", "holiday", "holiday"}, kinds)

	sorted := decode[api.TimelineDTO](t, f.do(t, http.MethodGet, "/api/timeline?order=chronological", ""))
	assert.Equal(t, "2025-12-01", sorted.Start, "clock fallback")
	assert.Equal(t, "Christmas", sorted.Markers[1].Label)
	assert.Equal(t, "simulatedCallout", sorted.Markers[3].Kind)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

func TestHolidays(t *testing.T) {
	f := newFixture(t)

	list := decode[api.HolidayListDTO](t, f.do(t, http.MethodGet, "/api/holidays", ""))
	assert.True(t, list.Loaded)
	assert.Len(t, list.Holidays, 2)

	upcoming := decode[[]api.HolidayDTO](t, f.do(t, http.MethodGet, "/api/holidays/upcoming?days=24", ""))
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Christmas", upcoming[0].Name)

	upcoming = decode[[]api.HolidayDTO](t, f.do(t, http.MethodGet, "/api/holidays/upcoming?from=2025-12-26&days=6", ""))
	require.Len(t, upcoming, 1)
	assert.Equal(t, "New Year", upcoming[0].Name)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/holidays/upcoming?days=soon", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/holidays/upcoming?from=xmas", "").Code)

	match := decode[api.HolidayMatchDTO](t, f.do(t, http.MethodGet, "/api/holidays/2025-12-24", ""))
	assert.Nil(t, match.Exact)
	require.NotNil(t, match.Adjacent)
	assert.Equal(t, "Christmas", match.Adjacent.Name)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/holidays/xmas", "").Code)
}

// =============================================================================
// THEME AND METRICS
// =============================================================================

func TestTheme(t *testing.T) {
	f := newFixture(t)

	theme := decode[api.ThemeDTO](t, f.do(t, http.MethodGet, "/api/theme", ""))
	assert.Equal(t, "light", theme.Theme)

	theme = decode[api.ThemeDTO](t, f.do(t, http.MethodPut, "/api/theme", `{"theme": "dark"}`))
	assert.Equal(t, "dark", theme.Theme)
	require.NotNil(t, theme.Persisted)
	assert.True(t, *theme.Persisted)

	theme = decode[api.ThemeDTO](t, f.do(t, http.MethodGet, "/api/theme", ""))
	assert.Equal(t, "dark", theme.Theme)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPut, "/api/state/warnings", `{"value": 1}`)

	rec := f.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_state_mutations_total{field="warnings"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/state/warnings"`)
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }
