package db

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WeighingRun is one recorded weighing with the calibration it used.
type WeighingRun struct {
	RunID                string    `json:"run_id"`
	PopulationID         string    `json:"population_id"`
	PopulationSize       int       `json:"population_size"`
	ReferenceCount       int       `json:"reference_count"`
	UnitWeight           float64   `json:"unit_weight"`
	SampleSize           int       `json:"sample_size"`
	SampleTotalWeight    float64   `json:"sample_total_weight"`
	EstimatedCount       float64   `json:"estimated_count"`
	RoundedCount         int       `json:"rounded_count"`
	AbsoluteError        float64   `json:"absolute_error"`
	RelativeErrorPercent float64   `json:"relative_error_percent"`
	CreatedAt            time.Time `json:"created_at"`
}

// RecordRun stores run, assigning a RunID and CreatedAt when unset.
func (db *DB) RecordRun(run WeighingRun) (WeighingRun, error) {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.Truncate(time.Millisecond)

	_, err := db.Exec(`
		INSERT INTO weighing_runs (
			run_id, population_id, population_size, reference_count, unit_weight,
			sample_size, sample_total_weight, estimated_count, rounded_count,
			absolute_error, relative_error_percent, created_at_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.PopulationID, run.PopulationSize, run.ReferenceCount, run.UnitWeight,
		run.SampleSize, run.SampleTotalWeight, run.EstimatedCount, run.RoundedCount,
		run.AbsoluteError, run.RelativeErrorPercent, run.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return WeighingRun{}, fmt.Errorf("failed to record weighing run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first. A limit of zero or
// less returns every run.
func (db *DB) ListRuns(limit int) ([]WeighingRun, error) {
	query := `
		SELECT run_id, population_id, population_size, reference_count, unit_weight,
			sample_size, sample_total_weight, estimated_count, rounded_count,
			absolute_error, relative_error_percent, created_at_ms
		FROM weighing_runs
		ORDER BY created_at_ms DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query weighing runs: %w", err)
	}
	defer rows.Close()

	runs := []WeighingRun{}
	for rows.Next() {
		var (
			r         WeighingRun
			createdMs int64
		)
		if err := rows.Scan(
			&r.RunID, &r.PopulationID, &r.PopulationSize, &r.ReferenceCount, &r.UnitWeight,
			&r.SampleSize, &r.SampleTotalWeight, &r.EstimatedCount, &r.RoundedCount,
			&r.AbsoluteError, &r.RelativeErrorPercent, &createdMs,
		); err != nil {
			return nil, err
		}
		r.CreatedAt = time.UnixMilli(createdMs)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
