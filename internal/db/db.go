package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"dispatch-replay/internal/dispatch"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Tables written by the dispatch simulator:
//
//	replay_runs(run_id text, finished_at timestamptz)
//	replay_trips(run_id text, seq int, passenger_id text, route jsonb, "timestamp" jsonb)
//	replay_passengers(run_id text, seq int, passenger_id text, "timestamp" jsonb, location jsonb, wait_min double precision)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// ResolveLatestRun returns the run_id of the most recently finished simulation run.
func ResolveLatestRun(ctx context.Context, db *sql.DB) (string, error) {
	q := `
SELECT run_id
FROM replay_runs
WHERE finished_at IS NOT NULL
ORDER BY finished_at DESC
LIMIT 1`
	var runID sql.NullString
	if err := db.QueryRowContext(ctx, q).Scan(&runID); err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("no finished simulation run found")
		}
		return "", err
	}
	if !runID.Valid || strings.TrimSpace(runID.String) == "" {
		return "", fmt.Errorf("empty run_id in replay_runs")
	}
	return runID.String, nil
}

// FetchTrips returns the trips of a run in the order the simulator wrote them.
// Order matters: the first trip per passenger wins the passenger join.
func FetchTrips(ctx context.Context, db *sql.DB, runID string) ([]dispatch.Trip, error) {
	q := `SELECT COALESCE(passenger_id, ''), COALESCE(route::text, ''), COALESCE("timestamp"::text, '')
          FROM replay_trips WHERE run_id = $1 ORDER BY seq`
	rows, err := db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []dispatch.Trip
	for rows.Next() {
		var id, route, ts string
		if err := rows.Scan(&id, &route, &ts); err != nil {
			return nil, err
		}
		t := dispatch.Trip{PassengerID: dispatch.ID(strings.TrimSpace(id))}
		if err := decodeJSONB(route, &t.Route); err != nil {
			log.Printf("replay_trips: passenger %q route: %v", id, err)
		}
		if err := decodeJSONB(ts, &t.Timestamp); err != nil {
			log.Printf("replay_trips: passenger %q timestamp: %v", id, err)
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func FetchPassengers(ctx context.Context, db *sql.DB, runID string) ([]dispatch.PassengerEvent, error) {
	q := `SELECT COALESCE(passenger_id, ''), COALESCE("timestamp"::text, ''), COALESCE(location::text, ''), wait_min
          FROM replay_passengers WHERE run_id = $1 ORDER BY seq`
	rows, err := db.QueryContext(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("query passengers: %w", err)
	}
	defer rows.Close()

	var ps []dispatch.PassengerEvent
	for rows.Next() {
		var id, ts, loc string
		var wait sql.NullFloat64
		if err := rows.Scan(&id, &ts, &loc, &wait); err != nil {
			return nil, err
		}
		p := dispatch.PassengerEvent{PassengerID: dispatch.ID(strings.TrimSpace(id))}
		if err := decodeJSONB(ts, &p.Timestamp); err != nil {
			log.Printf("replay_passengers: passenger %q timestamp: %v", id, err)
		}
		if loc != "" {
			p.Location = dispatch.NormalizeLocation(json.RawMessage(loc), nil)
		}
		p.WaitMin = waitMinutes(wait)
		ps = append(ps, p)
	}
	return ps, rows.Err()
}

// decodeJSONB leaves dst at its zero value when the column is empty. The
// dispatch decoders degrade malformed values, so an error here means the
// column text was not JSON at all.
func decodeJSONB(s string, dst any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}

// waitMinutes keeps a recorded wait only when it is a finite number. NULL and
// non-finite values mean no recorded wait.
func waitMinutes(v sql.NullFloat64) *float64 {
	if !v.Valid || !dispatch.Finite(v.Float64) {
		return nil
	}
	w := v.Float64
	return &w
}
