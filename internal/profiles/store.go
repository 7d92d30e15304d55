package profiles

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/milicad/fittrack/internal/telemetry/tracing"
)

// gateway persists one user's profile document. A nil profile with a
// nil error means the user never saved one.
type gateway interface {
	LoadProfile(ctx context.Context, userID string) (*Profile, error)
	SaveProfile(ctx context.Context, userID string, profile Profile) error
}

// Store caches the per-user profiles in front of the gateway. A save
// replaces the whole record; reads after a process restart fall back to
// disk.
type Store struct {
	gateway gateway

	mutex    sync.RWMutex
	profiles map[string]Profile
}

func NewStore(gateway gateway) *Store {
	return &Store{
		gateway:  gateway,
		profiles: make(map[string]Profile),
	}
}

func (s *Store) Set(ctx context.Context, userID string, profile Profile) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "profiles.store.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := profile.Validate(); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.gateway.SaveProfile(ctx, userID, profile); err != nil {
		return fmt.Errorf("save profile of %s: %w", userID, err)
	}
	s.profiles[userID] = profile

	log.Debugf("profiles store: saved profile for user %s", userID)
	return nil
}

func (s *Store) Get(ctx context.Context, userID string) (_ *Profile, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "profiles.store.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	s.mutex.RLock()
	profile, ok := s.profiles[userID]
	s.mutex.RUnlock()
	if ok {
		return &profile, nil
	}

	loaded, err := s.gateway.LoadProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile of %s: %w", userID, err)
	}
	if loaded == nil {
		return nil, ErrNoProfile
	}

	s.mutex.Lock()
	s.profiles[userID] = *loaded
	s.mutex.Unlock()

	return loaded, nil
}

// Age feeds the heart rate ceiling of the VO2max estimation.
func (s *Store) Age(ctx context.Context, userID string) (int, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return profile.Age, nil
}
