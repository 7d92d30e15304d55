// Package userdata stores each user's records as plain JSON documents
// on disk, one directory per user:
//
//	<root>/<userID>/profile.json
//	<root>/<userID>/workouts.json
//
// A missing document is an empty collection. A document that exists but
// does not parse is surfaced as a CorruptDataError and never silently
// replaced.
package userdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/milicad/fittrack/internal/profiles"
	"github.com/milicad/fittrack/internal/telemetry/tracing"
	"github.com/milicad/fittrack/internal/workouts"
)

const (
	profileFileName  = "profile.json"
	workoutsFileName = "workouts.json"
)

// CorruptDataError wraps a document that exists on disk but cannot be
// decoded. Callers must not treat it as a missing document.
type CorruptDataError struct {
	Path string
	Err  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt data file %s: %s", e.Path, e.Err)
}

func (e *CorruptDataError) Unwrap() error {
	return e.Err
}

type Gateway struct {
	rootPath string

	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

func NewGateway(rootPath string) (*Gateway, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("create user data root %s: %w", rootPath, err)
	}
	log.Debugf("userdata gateway: root at %s", rootPath)
	return &Gateway{
		rootPath: rootPath,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// userLock serializes file writes per user; two users never contend.
func (g *Gateway) userLock(userID string) *sync.Mutex {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	lock, ok := g.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[userID] = lock
	}
	return lock
}

func (g *Gateway) userFilePath(userID, fileName string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("empty user id")
	}
	if strings.ContainsAny(userID, `/\`) || strings.Contains(userID, "..") {
		return "", fmt.Errorf("invalid user id: %s", userID)
	}
	return filepath.Join(g.rootPath, userID, fileName), nil
}

func (g *Gateway) LoadWorkouts(ctx context.Context, userID string) (_ []workouts.Workout, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "userdata.loadWorkouts")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var records []workouts.Workout
	if err := g.loadDocument(userID, workoutsFileName, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (g *Gateway) SaveWorkouts(ctx context.Context, userID string, records []workouts.Workout) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "userdata.saveWorkouts")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if records == nil {
		records = []workouts.Workout{}
	}
	return g.saveDocument(userID, workoutsFileName, records)
}

func (g *Gateway) LoadProfile(ctx context.Context, userID string) (_ *profiles.Profile, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "userdata.loadProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var profile *profiles.Profile
	if err := g.loadDocument(userID, profileFileName, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (g *Gateway) SaveProfile(ctx context.Context, userID string, profile profiles.Profile) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "userdata.saveProfile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return g.saveDocument(userID, profileFileName, profile)
}

// loadDocument fills dest from the user's document, leaving dest
// untouched when the document does not exist yet.
func (g *Gateway) loadDocument(userID, fileName string, dest interface{}) error {
	path, err := g.userFilePath(userID, fileName)
	if err != nil {
		return err
	}

	lock := g.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	docBytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Tracef("userdata gateway: no %s for user %s yet", fileName, userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(docBytes, dest); err != nil {
		return &CorruptDataError{Path: path, Err: err}
	}
	return nil
}

func (g *Gateway) saveDocument(userID, fileName string, doc interface{}) error {
	path, err := g.userFilePath(userID, fileName)
	if err != nil {
		return err
	}

	docBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", fileName, err)
	}

	lock := g.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create user dir for %s: %w", userID, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	_, writeErr := file.Write(docBytes)
	if err := multierr.Combine(writeErr, file.Close()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	log.Tracef("userdata gateway: saved %s for user %s [%d bytes]", fileName, userID, len(docBytes))
	return nil
}
