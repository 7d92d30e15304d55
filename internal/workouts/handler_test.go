package workouts_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milicad/fittrack/internal/auth"
	"github.com/milicad/fittrack/internal/profiles"
	"github.com/milicad/fittrack/internal/telemetry/metrics"
	"github.com/milicad/fittrack/internal/workouts"
)

type handlerTestSetup struct {
	ctrl    *gomock.Controller
	store   *MockworkoutsStore
	router  *mux.Router
	metrics *metrics.Manager
}

func setupHandlerTest(t *testing.T) *handlerTestSetup {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := NewMockworkoutsStore(ctrl)
	metricsManager := metrics.NewTestManager()
	handler := workouts.NewHandler(store, metricsManager)
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	return &handlerTestSetup{
		ctrl:    ctrl,
		store:   store,
		router:  router,
		metrics: metricsManager,
	}
}

func authedRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(auth.ContextWithUser(context.Background(), "mila"))
}

func TestHandler_Add(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		Add(gomock.Any(), "mila", gomock.Any()).
		Return(&workouts.Workout{
			ID: 100, Date: "2026-03-14", Type: workouts.TypeSteady,
			DurationMin: 40, DistanceKm: 8, HeartRateBPM: 150, Pace: 5.0, VO2Max: 45.6,
		}, nil)

	req := authedRequest(t, "POST", "/workouts", `{
		"date": "2026-03-14", "type": "steady", "duration_min": 40,
		"distance_km": 8, "heart_rate_bpm": 150, "pace": 5.0
	}`)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var added workouts.Workout
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &added))
	assert.Equal(t, int64(100), added.ID)
	assert.InDelta(t, 45.6, added.VO2Max, 0.001)
}

func TestHandler_Add_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name               string
		storeErr           error
		expectedStatusCode int
	}{
		{
			name:               "validation error",
			storeErr:           workouts.NewValidationError("pace", "must be positive"),
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "domain error",
			storeErr:           &workouts.DomainError{Reason: "age 220 leaves no heart rate ceiling"},
			expectedStatusCode: http.StatusUnprocessableEntity,
		},
		{
			name:               "no profile",
			storeErr:           profiles.ErrNoProfile,
			expectedStatusCode: http.StatusConflict,
		},
		{
			name:               "storage failure",
			storeErr:           assert.AnError,
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := setupHandlerTest(t)
			s.store.EXPECT().
				Add(gomock.Any(), "mila", gomock.Any()).
				Return(nil, tc.storeErr)

			req := authedRequest(t, "POST", "/workouts", `{
				"date": "2026-03-14", "type": "steady", "duration_min": 40,
				"distance_km": 8, "heart_rate_bpm": 150, "pace": 5.0
			}`)
			rr := httptest.NewRecorder()
			s.router.ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
		})
	}
}

func TestHandler_Add_NoUser(t *testing.T) {
	s := setupHandlerTest(t)

	req := httptest.NewRequest("POST", "/workouts", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_List(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		List(gomock.Any(), "mila", workouts.OrderDateDesc, 2).
		Return([]workouts.Workout{
			{ID: 2, Date: "2026-03-20"},
			{ID: 1, Date: "2026-03-10"},
		}, nil)

	req := authedRequest(t, "GET", "/workouts?limit=2", "")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var listResp workouts.ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listResp))
	assert.Equal(t, 2, listResp.Total)
	assert.Equal(t, int64(2), listResp.Workouts[0].ID)
}

func TestHandler_List_InsertionOrder(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		List(gomock.Any(), "mila", workouts.OrderInsertion, 0).
		Return([]workouts.Workout{{ID: 1}}, nil)

	req := authedRequest(t, "GET", "/workouts?order=insertion", "")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandler_List_InvalidParams(t *testing.T) {
	s := setupHandlerTest(t)

	req := authedRequest(t, "GET", "/workouts?order=bogus", "")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = authedRequest(t, "GET", "/workouts?limit=-3", "")
	rr = httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Update(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		Update(gomock.Any(), "mila", int64(100), gomock.Any()).
		Return(&workouts.Workout{ID: 100, Pace: 4.5, VO2Max: 50.1}, nil)

	req := authedRequest(t, "PUT", "/workouts/100", `{"pace": 4.5}`)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var updated workouts.Workout
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, 4.5, updated.Pace)
}

func TestHandler_Update_NotFound(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		Update(gomock.Any(), "mila", int64(42), gomock.Any()).
		Return(nil, workouts.ErrWorkoutNotFound)

	req := authedRequest(t, "PUT", "/workouts/42", `{"pace": 4.5}`)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_Update_InvalidID(t *testing.T) {
	s := setupHandlerTest(t)

	req := authedRequest(t, "PUT", "/workouts/abc", `{"pace": 4.5}`)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandler_Delete(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		Delete(gomock.Any(), "mila", int64(100)).
		Return(nil)

	req := authedRequest(t, "DELETE", "/workouts/100", "")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var deleteResp workouts.DeleteWorkoutResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &deleteResp))
	assert.Equal(t, int64(100), deleteResp.DeletedID)
}

func TestHandler_Stats(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		Stats(gomock.Any(), "mila").
		Return(&workouts.Stats{
			Workouts: 3, TotalDistanceKm: 24.5, AvgVO2Max: 46.2, AvgPace: 5.2,
		}, nil)

	req := authedRequest(t, "GET", "/workouts/stats", "")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var statsResp workouts.StatsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &statsResp))
	assert.False(t, statsResp.NoData)
	assert.Equal(t, 3, statsResp.Workouts)
}

func TestHandler_Stats_NoWorkouts(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		Stats(gomock.Any(), "mila").
		Return(nil, workouts.ErrNoWorkouts)

	req := authedRequest(t, "GET", "/workouts/stats", "")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"no_data":true`)
}

func TestHandler_Trend(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		List(gomock.Any(), "mila", workouts.OrderInsertion, 0).
		Return([]workouts.Workout{
			{ID: 1, Date: "2026-03-14", VO2Max: 44.0},
			{ID: 2, Date: "2026-03-14", VO2Max: 46.0},
			{ID: 3, Date: "2026-03-10", VO2Max: 43.0},
		}, nil)

	req := authedRequest(t, "GET", "/workouts/trend", "")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var trend []workouts.TrendPoint
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trend))
	require.Len(t, trend, 2)
	assert.Equal(t, "2026-03-10", trend[0].Date)
	assert.Equal(t, "2026-03-14", trend[1].Date)
	assert.InDelta(t, 45.0, trend[1].AvgVO2Max, 0.001)
	assert.Equal(t, 2, trend[1].Workouts)
}

func TestHandler_Export(t *testing.T) {
	s := setupHandlerTest(t)

	s.store.EXPECT().
		List(gomock.Any(), "mila", workouts.OrderDateDesc, 0).
		Return([]workouts.Workout{
			{
				ID: 1, Date: "2026-03-14", Type: workouts.TypeSteady,
				DurationMin: 40, DistanceKm: 8, HeartRateBPM: 150, Pace: 5.0, VO2Max: 45.6,
			},
		}, nil)

	req := authedRequest(t, "GET", "/workouts/export", "")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,type,duration,distance,heart_rate,pace,vo2max", lines[0])
	assert.Equal(t, "2026-03-14,steady,40,8,150,5,45.6", lines[1])
}
