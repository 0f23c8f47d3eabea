package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/notterun/internal/task"
)

// Entry is one indexed result.
type Entry struct {
	ID        string
	Result    task.Result
	Artifacts []string
}

// Filter narrows Recent.
type Filter struct {
	Provider string
	Failed   bool // only results that did not succeed
	Limit    int  // default 20
}

// ProviderStats summarizes results per provider.
type ProviderStats struct {
	Provider  string
	Total     int
	Succeeded int
	AvgSecs   float64
}

var (
	ErrNotFound = errors.New("history entry not found")
	ErrEmptyID  = errors.New("history entry id is required")
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Record stores a result and its artifact paths.
func (d *DB) Record(ctx context.Context, res *task.Result, artifacts []string) error {
	if res == nil {
		return errors.New("nil result")
	}
	id := uuid.NewString()

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results (id, task, model, provider, success, failure, duration_s, answer, executed_at, steps)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, res.Task, res.Model, res.Provider, res.Success, string(res.Failure),
		res.DurationSeconds, res.Answer, res.Timestamp.UnixNano(), res.Steps)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	for i, p := range artifacts {
		if _, err := tx.ExecContext(ctx, `INSERT INTO artifacts (result_id, position, path) VALUES (?, ?, ?)`, id, i, p); err != nil {
			return fmt.Errorf("insert artifact: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (d *DB) Recent(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}

	query := `SELECT id, task, model, provider, success, failure, duration_s, answer, executed_at, steps FROM results WHERE 1=1`
	var args []any
	if f.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, f.Provider)
	}
	if f.Failed {
		query += ` AND success = 0`
	}
	query += ` ORDER BY executed_at DESC, rowid DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	for i := range entries {
		paths, err := d.artifacts(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Artifacts = paths
	}
	return entries, nil
}

// Get returns the entry with the given id or id prefix. Wildcards in id
// match literally.
func (d *DB) Get(ctx context.Context, id string) (Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Entry{}, ErrEmptyID
	}
	row := d.sql.QueryRowContext(ctx, `
		SELECT id, task, model, provider, success, failure, duration_s, answer, executed_at, steps
		FROM results WHERE id LIKE ? ESCAPE '\' ORDER BY executed_at DESC LIMIT 1`,
		likeEscaper.Replace(id)+"%")
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, err
	}
	e.Artifacts, err = d.artifacts(ctx, e.ID)
	return e, err
}

// Stats aggregates results per provider, ordered by provider name.
func (d *DB) Stats(ctx context.Context) ([]ProviderStats, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT provider, COUNT(*), COALESCE(SUM(success), 0), COALESCE(AVG(duration_s), 0)
		FROM results GROUP BY provider ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ProviderStats
	for rows.Next() {
		var s ProviderStats
		if err := rows.Scan(&s.Provider, &s.Total, &s.Succeeded, &s.AvgSecs); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) artifacts(ctx context.Context, id string) ([]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT path FROM artifacts WHERE result_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e       Entry
		failure string
		at      int64
	)
	err := s.Scan(&e.ID, &e.Result.Task, &e.Result.Model, &e.Result.Provider, &e.Result.Success,
		&failure, &e.Result.DurationSeconds, &e.Result.Answer, &at, &e.Result.Steps)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan result: %w", err)
	}
	e.Result.Failure = task.FailureKind(failure)
	e.Result.Timestamp = time.Unix(0, at).Local()
	return e, nil
}
