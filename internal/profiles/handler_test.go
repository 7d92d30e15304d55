package profiles_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milicad/fittrack/internal/auth"
	"github.com/milicad/fittrack/internal/profiles"
	"github.com/milicad/fittrack/internal/telemetry/metrics"
)

type storeMock struct {
	profiles map[string]profiles.Profile
	setErr   error
	getErr   error
}

func newStoreMock() *storeMock {
	return &storeMock{
		profiles: map[string]profiles.Profile{},
	}
}

func (s *storeMock) Set(_ context.Context, userID string, profile profiles.Profile) error {
	if s.setErr != nil {
		return s.setErr
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	s.profiles[userID] = profile
	return nil
}

func (s *storeMock) Get(_ context.Context, userID string) (*profiles.Profile, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	profile, ok := s.profiles[userID]
	if !ok {
		return nil, profiles.ErrNoProfile
	}
	return &profile, nil
}

func profilesTestRouter(store *storeMock) *mux.Router {
	handler := profiles.NewHandler(store, metrics.NewTestManager())
	router := mux.NewRouter()
	handler.SetupRoutes(router)
	return router
}

func authedProfileRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(auth.ContextWithUser(context.Background(), "mila"))
}

func TestProfilesHandler_SetAndGet(t *testing.T) {
	store := newStoreMock()
	router := profilesTestRouter(store)

	profileJson, err := json.Marshal(profiles.Profile{
		Name: "Mila", Age: 30, WeightKg: 65, HeightCm: 172,
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedProfileRequest("POST", "/profile", profileJson))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, authedProfileRequest("GET", "/profile", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got profiles.GetProfileResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Mila", got.Name)
	assert.InDelta(t, 22.0, got.BMI, 0.001)
}

func TestProfilesHandler_SetWithoutName(t *testing.T) {
	store := newStoreMock()
	router := profilesTestRouter(store)

	// name is optional, a profile with only the measurements saves fine
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedProfileRequest(
		"POST", "/profile", []byte(`{"age":30,"weight_kg":65,"height_cm":172}`),
	))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "saved", rr.Body.String())
	assert.Empty(t, store.profiles["mila"].Name)
}

func TestProfilesHandler_SetValidationError(t *testing.T) {
	store := newStoreMock()
	router := profilesTestRouter(store)

	profileJson, err := json.Marshal(profiles.Profile{
		Name: "Mila", Age: 500, WeightKg: 65, HeightCm: 172,
	})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedProfileRequest("POST", "/profile", profileJson))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid age")
}

func TestProfilesHandler_GetMissing(t *testing.T) {
	store := newStoreMock()
	router := profilesTestRouter(store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, authedProfileRequest("GET", "/profile", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestProfilesHandler_NoUser(t *testing.T) {
	store := newStoreMock()
	router := profilesTestRouter(store)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
