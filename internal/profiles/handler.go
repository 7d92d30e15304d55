package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/milicad/fittrack/internal/auth"
	"github.com/milicad/fittrack/internal/telemetry/metrics"
	"github.com/milicad/fittrack/internal/telemetry/tracing"
	"github.com/milicad/fittrack/pkg"
)

type profilesStore interface {
	Set(ctx context.Context, userID string, profile Profile) error
	Get(ctx context.Context, userID string) (*Profile, error)
}

// GetProfileResponse carries the stored record plus the derived BMI.
type GetProfileResponse struct {
	Profile
	BMI float64 `json:"bmi"`
}

type Handler struct {
	store          profilesStore
	metricsManager *metrics.Manager
}

func NewHandler(store profilesStore, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		store:          store,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/profile", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-profile")
	router.HandleFunc("/profile", handler.HandleSet).Methods("POST", "OPTIONS").Name("save-profile")
}

func (handler *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profiles.set")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no user", http.StatusUnauthorized)
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var profile Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		log.Tracef("save profile, unmarshal json params: %s", err)
		http.Error(w, "save profile failed", http.StatusBadRequest)
		return
	}

	if err := handler.store.Set(ctx, user, profile); err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			http.Error(w, validationErr.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("failed to save profile of %s: %s", user, err)
		http.Error(w, "failed to save profile", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterProfileSaves.Inc()
	pkg.WriteTextResponseOK(w, "saved")
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.profiles.get")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no user", http.StatusUnauthorized)
		return
	}

	profile, err := handler.store.Get(ctx, user)
	if err != nil {
		if errors.Is(err, ErrNoProfile) {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get profile of %s: %s", user, err)
		http.Error(w, "failed to get profile", http.StatusInternalServerError)
		return
	}

	profileJson, err := json.Marshal(GetProfileResponse{
		Profile: *profile,
		BMI:     profile.BMI(),
	})
	if err != nil {
		log.Errorf("failed to marshal profile: %s", err)
		http.Error(w, "failed to marshal profile", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, profileJson)
}
