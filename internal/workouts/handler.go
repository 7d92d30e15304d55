package workouts

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/milicad/fittrack/internal/auth"
	"github.com/milicad/fittrack/internal/profiles"
	"github.com/milicad/fittrack/internal/telemetry/metrics"
	"github.com/milicad/fittrack/internal/telemetry/tracing"
	"github.com/milicad/fittrack/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workouts_test

type workoutsStore interface {
	Add(ctx context.Context, userID string, draft Draft) (*Workout, error)
	Update(ctx context.Context, userID string, id int64, patch Patch) (*Workout, error)
	Delete(ctx context.Context, userID string, id int64) error
	List(ctx context.Context, userID string, order Order, limit int) ([]Workout, error)
	Stats(ctx context.Context, userID string) (*Stats, error)
}

type DeleteWorkoutResponse struct {
	DeletedID int64 `json:"deleted_id"`
}

type ListResponse struct {
	Workouts []Workout `json:"workouts"`
	Total    int       `json:"total"`
}

type StatsResponse struct {
	NoData bool `json:"no_data,omitempty"`
	*Stats
}

type Handler struct {
	store          workoutsStore
	analyzer       *Analyzer
	metricsManager *metrics.Manager
}

func NewHandler(store workoutsStore, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		store:          store,
		analyzer:       NewAnalyzer(store),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/workouts", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	router.HandleFunc("/workouts", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	router.HandleFunc("/workouts/stats", handler.HandleStats).Methods("GET", "OPTIONS").Name("workouts-stats")
	router.HandleFunc("/workouts/trend", handler.HandleTrend).Methods("GET", "OPTIONS").Name("workouts-trend")
	router.HandleFunc("/workouts/export", handler.HandleExport).Methods("GET", "OPTIONS").Name("export-workouts")
	router.HandleFunc("/workouts/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-workout")
	router.HandleFunc("/workouts/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.add")
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

	var draft Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		log.Tracef("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	added, err := handler.store.Add(ctx, user, draft)
	if err != nil {
		handler.writeError(w, err, "failed to add workout")
		return
	}

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "error, failed to add new workout", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterWorkoutsAdded.Inc()
	log.Debugf("new workout added: %s", addedJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no user", http.StatusUnauthorized)
		return
	}

	order := OrderDateDesc
	if orderStr := r.URL.Query().Get("order"); orderStr != "" {
		switch Order(orderStr) {
		case OrderDateDesc, OrderInsertion:
			order = Order(orderStr)
		default:
			http.Error(w, "invalid order (use date_desc or insertion)", http.StatusBadRequest)
			return
		}
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			http.Error(w, "invalid limit (has to be a positive number)", http.StatusBadRequest)
			return
		}
	}

	records, err := handler.store.List(ctx, user, order, limit)
	if err != nil {
		handler.writeError(w, err, "failed to list workouts")
		return
	}

	listRespJson, err := json.Marshal(ListResponse{
		Workouts: records,
		Total:    len(records),
	})
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listRespJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
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

	id, err := workoutID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		log.Tracef("update workout, unmarshal json params: %s", err)
		http.Error(w, "update workout failed", http.StatusBadRequest)
		return
	}

	updated, err := handler.store.Update(ctx, user, id, patch)
	if err != nil {
		handler.writeError(w, err, "failed to update workout")
		return
	}

	updatedJson, err := json.Marshal(updated)
	if err != nil {
		log.Errorf("failed to marshal updated workout: %s", err)
		http.Error(w, "failed to marshal updated workout", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterWorkoutsUpdated.Inc()
	log.Debugf("workout %d of user %s updated", id, user)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, updatedJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no user", http.StatusUnauthorized)
		return
	}

	id, err := workoutID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.store.Delete(ctx, user, id); err != nil {
		handler.writeError(w, err, "failed to delete workout")
		return
	}

	deleteRespJson, err := json.Marshal(DeleteWorkoutResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterWorkoutsDeleted.Inc()
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no user", http.StatusUnauthorized)
		return
	}

	stats, err := handler.store.Stats(ctx, user)
	if err != nil && !errors.Is(err, ErrNoWorkouts) {
		handler.writeError(w, err, "failed to get workout stats")
		return
	}

	statsRespJson, err := json.Marshal(StatsResponse{
		NoData: stats == nil,
		Stats:  stats,
	})
	if err != nil {
		log.Errorf("failed to marshal stats response: %s", err)
		http.Error(w, "failed to marshal stats response", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, statsRespJson)
}

func (handler *Handler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.trend")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no user", http.StatusUnauthorized)
		return
	}

	trend, err := handler.analyzer.VO2MaxTrend(ctx, user)
	if err != nil {
		handler.writeError(w, err, "failed to get vo2max trend")
		return
	}

	trendJson, err := json.Marshal(trend)
	if err != nil {
		log.Errorf("failed to marshal trend response: %s", err)
		http.Error(w, "failed to marshal trend response", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, trendJson)
}

var exportHeader = []string{"date", "type", "duration", "distance", "heart_rate", "pace", "vo2max"}

func (handler *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.export")
	defer span.End()

	user, ok := auth.UserFromContext(ctx)
	if !ok {
		http.Error(w, "no user", http.StatusUnauthorized)
		return
	}

	records, err := handler.store.List(ctx, user, OrderDateDesc, 0)
	if err != nil {
		handler.writeError(w, err, "failed to export workouts")
		return
	}

	w.Header().Set("Content-Type", pkg.ContentType.CSV)
	w.Header().Set("Content-Disposition", `attachment; filename="workouts.csv"`)

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(exportHeader); err != nil {
		log.Errorf("failed to write workouts csv header: %s", err)
		return
	}
	for _, record := range records {
		row := []string{
			record.Date,
			string(record.Type),
			strconv.FormatFloat(record.DurationMin, 'f', -1, 64),
			strconv.FormatFloat(record.DistanceKm, 'f', -1, 64),
			strconv.Itoa(record.HeartRateBPM),
			strconv.FormatFloat(record.Pace, 'f', -1, 64),
			strconv.FormatFloat(record.VO2Max, 'f', 1, 64),
		}
		if err := csvWriter.Write(row); err != nil {
			log.Errorf("failed to write workouts csv row: %s", err)
			return
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		log.Errorf("failed to flush workouts csv: %s", err)
	}
}

// writeError maps the error taxonomy to HTTP statuses: validation 400,
// domain 422, missing record 404, missing profile 409, the rest 500.
func (handler *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	var validationErr *ValidationError
	var domainErr *DomainError
	switch {
	case errors.As(err, &validationErr):
		http.Error(w, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &domainErr):
		http.Error(w, domainErr.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrWorkoutNotFound):
		http.Error(w, "workout not found", http.StatusNotFound)
	case errors.Is(err, profiles.ErrNoProfile):
		http.Error(w, "profile not set, save a profile first", http.StatusConflict)
	default:
		log.Errorf("%s: %s", fallback, err)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func workoutID(r *http.Request) (int64, error) {
	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error, id NaN")
	}
	return id, nil
}
