// Package dataset loads simulation runs for replay.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"

	"dispatch-replay/internal/db"
	"dispatch-replay/internal/dispatch"
)

// Source yields the current dataset. Implementations may return the same
// content on every call; callers compare fingerprints to detect changes.
type Source interface {
	Load(ctx context.Context) (*dispatch.Dataset, error)
}

// FileSource reads two JSON arrays from disk.
type FileSource struct {
	TripsPath      string
	PassengersPath string
}

func (s FileSource) Load(_ context.Context) (*dispatch.Dataset, error) {
	trips, err := readFile(s.TripsPath, dispatch.DecodeTrips)
	if err != nil {
		return nil, err
	}
	passengers, err := readFile(s.PassengersPath, dispatch.DecodePassengers)
	if err != nil {
		return nil, err
	}
	return &dispatch.Dataset{Trips: trips, Passengers: passengers}, nil
}

func readFile[T any](path string, decode func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()
	out, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// DBSource reads one run from Postgres. An empty RunID follows the latest
// finished run, so a refresher picks up new runs as they land.
type DBSource struct {
	DB    *sql.DB
	RunID string

	lastRun string
}

func (s *DBSource) Load(ctx context.Context) (*dispatch.Dataset, error) {
	runID := s.RunID
	if runID == "" {
		latest, err := db.ResolveLatestRun(ctx, s.DB)
		if err != nil {
			return nil, fmt.Errorf("resolve latest run: %w", err)
		}
		runID = latest
	}
	if runID != s.lastRun {
		log.Printf("loading simulation run %q", runID)
		s.lastRun = runID
	}
	trips, err := db.FetchTrips(ctx, s.DB, runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	passengers, err := db.FetchPassengers(ctx, s.DB, runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &dispatch.Dataset{Trips: trips, Passengers: passengers}, nil
}
