package workouts

import (
	"context"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/milicad/fittrack/internal/telemetry/tracing"
)

// gateway persists one user's ordered workout document.
type gateway interface {
	LoadWorkouts(ctx context.Context, userID string) ([]Workout, error)
	SaveWorkouts(ctx context.Context, userID string, records []Workout) error
}

// ageProvider supplies the current profile age used for the
// heart rate ceiling. Implemented by the profiles store.
type ageProvider interface {
	Age(ctx context.Context, userID string) (int, error)
}

type Order string

const (
	OrderDateDesc  Order = "date_desc"
	OrderInsertion Order = "insertion"
)

// Store owns the per-user workout collections. Insertion order is
// preserved; the date-descending order is a read-only view. Every
// mutation recomputes the VO2max of the touched record with the current
// profile age and persists the whole document before returning.
type Store struct {
	gateway gateway
	ages    ageProvider

	mutex sync.Mutex
	users map[string]*userRecords
}

// userRecords serializes all access to a single user's collection;
// one user's save never blocks another user's reads.
type userRecords struct {
	mutex   sync.Mutex
	loaded  bool
	records []Workout
}

func NewStore(gateway gateway, ages ageProvider) *Store {
	return &Store{
		gateway: gateway,
		ages:    ages,
		users:   make(map[string]*userRecords),
	}
}

func (s *Store) forUser(userID string) *userRecords {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	ur, ok := s.users[userID]
	if !ok {
		ur = &userRecords{}
		s.users[userID] = ur
	}
	return ur
}

// ensureLoaded lazily pulls the user's document from disk.
// A missing document means an empty collection, not an error.
func (s *Store) ensureLoaded(ctx context.Context, userID string, ur *userRecords) error {
	if ur.loaded {
		return nil
	}
	records, err := s.gateway.LoadWorkouts(ctx, userID)
	if err != nil {
		return fmt.Errorf("load workouts of %s: %w", userID, err)
	}
	ur.records = records
	ur.loaded = true
	log.Debugf("workouts store: loaded %d records for user %s", len(records), userID)
	return nil
}

func (s *Store) Add(ctx context.Context, userID string, draft Draft) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.store.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := draft.Validate(); err != nil {
		return nil, err
	}

	age, err := s.ages.Age(ctx, userID)
	if err != nil {
		return nil, err
	}

	vo2max, err := ComputeVO2Max(VO2MaxInput{
		Type:          draft.Type,
		Pace:          draft.Pace,
		HeartRateBPM:  draft.HeartRateBPM,
		Age:           age,
		InclinePct:    draft.InclinePct,
		StrokeRateSPM: draft.StrokeRateSPM,
	})
	if err != nil {
		return nil, err
	}

	record := Workout{
		ID:            NewID(),
		Date:          draft.Date,
		Type:          draft.Type,
		DurationMin:   draft.DurationMin,
		DistanceKm:    draft.distanceKm(),
		HeartRateBPM:  draft.HeartRateBPM,
		Pace:          draft.Pace,
		InclinePct:    draft.InclinePct,
		StrokeRateSPM: draft.StrokeRateSPM,
		VO2Max:        vo2max,
	}

	ur := s.forUser(userID)
	ur.mutex.Lock()
	defer ur.mutex.Unlock()

	if err := s.ensureLoaded(ctx, userID, ur); err != nil {
		return nil, err
	}

	ur.records = append(ur.records, record)
	if err := s.gateway.SaveWorkouts(ctx, userID, ur.records); err != nil {
		// keep memory consistent with disk, the add did not happen
		ur.records = ur.records[:len(ur.records)-1]
		return nil, fmt.Errorf("save workouts of %s: %w", userID, err)
	}

	log.Debugf("workouts store: added %s workout %d for user %s", record.Type, record.ID, userID)
	return &record, nil
}

func (s *Store) Update(ctx context.Context, userID string, id int64, patch Patch) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.store.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ur := s.forUser(userID)
	ur.mutex.Lock()
	defer ur.mutex.Unlock()

	if err := s.ensureLoaded(ctx, userID, ur); err != nil {
		return nil, err
	}

	idx := indexOf(ur.records, id)
	if idx < 0 {
		return nil, ErrWorkoutNotFound
	}

	updated := patch.apply(ur.records[idx])
	if err := updated.draft().Validate(); err != nil {
		return nil, err
	}

	// recompute with the age the profile has now, not the age at creation
	age, err := s.ages.Age(ctx, userID)
	if err != nil {
		return nil, err
	}
	updated.VO2Max, err = ComputeVO2Max(VO2MaxInput{
		Type:          updated.Type,
		Pace:          updated.Pace,
		HeartRateBPM:  updated.HeartRateBPM,
		Age:           age,
		InclinePct:    updated.InclinePct,
		StrokeRateSPM: updated.StrokeRateSPM,
	})
	if err != nil {
		return nil, err
	}

	previous := ur.records[idx]
	ur.records[idx] = updated
	if err := s.gateway.SaveWorkouts(ctx, userID, ur.records); err != nil {
		ur.records[idx] = previous
		return nil, fmt.Errorf("save workouts of %s: %w", userID, err)
	}

	log.Debugf("workouts store: updated workout %d for user %s", id, userID)
	return &updated, nil
}

func (s *Store) Delete(ctx context.Context, userID string, id int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.store.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ur := s.forUser(userID)
	ur.mutex.Lock()
	defer ur.mutex.Unlock()

	if err := s.ensureLoaded(ctx, userID, ur); err != nil {
		return err
	}

	idx := indexOf(ur.records, id)
	if idx < 0 {
		return ErrWorkoutNotFound
	}

	removed := ur.records[idx]
	ur.records = append(ur.records[:idx:idx], ur.records[idx+1:]...)
	if err := s.gateway.SaveWorkouts(ctx, userID, ur.records); err != nil {
		restored := make([]Workout, 0, len(ur.records)+1)
		restored = append(restored, ur.records[:idx]...)
		restored = append(restored, removed)
		restored = append(restored, ur.records[idx:]...)
		ur.records = restored
		return fmt.Errorf("save workouts of %s: %w", userID, err)
	}

	log.Debugf("workouts store: deleted workout %d of user %s", id, userID)
	return nil
}

// List returns a copy of the user's records; the backing collection is
// never exposed. A limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, userID string, order Order, limit int) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.store.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ur := s.forUser(userID)
	ur.mutex.Lock()
	defer ur.mutex.Unlock()

	if err := s.ensureLoaded(ctx, userID, ur); err != nil {
		return nil, err
	}

	records := make([]Workout, len(ur.records))
	copy(records, ur.records)

	if order == OrderDateDesc {
		// ISO dates sort lexicographically; same-day records keep insertion order
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Date > records[j].Date
		})
	}

	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

type Stats struct {
	Workouts        int     `json:"workouts"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	AvgVO2Max       float64 `json:"avg_vo2max"`
	AvgPace         float64 `json:"avg_pace"`
}

// Stats summarizes the whole collection. An empty collection yields
// ErrNoWorkouts instead of averages over zero records.
func (s *Store) Stats(ctx context.Context, userID string) (_ *Stats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.store.stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ur := s.forUser(userID)
	ur.mutex.Lock()
	defer ur.mutex.Unlock()

	if err := s.ensureLoaded(ctx, userID, ur); err != nil {
		return nil, err
	}

	if len(ur.records) == 0 {
		return nil, ErrNoWorkouts
	}

	stats := &Stats{Workouts: len(ur.records)}
	var vo2Sum, paceSum float64
	for _, record := range ur.records {
		stats.TotalDistanceKm += record.DistanceKm
		vo2Sum += record.VO2Max
		paceSum += record.Pace
	}
	count := float64(len(ur.records))
	stats.TotalDistanceKm = roundTo1Decimal(stats.TotalDistanceKm)
	stats.AvgVO2Max = roundTo1Decimal(vo2Sum / count)
	stats.AvgPace = roundTo1Decimal(paceSum / count)

	return stats, nil
}

func indexOf(records []Workout, id int64) int {
	for i, record := range records {
		if record.ID == id {
			return i
		}
	}
	return -1
}
