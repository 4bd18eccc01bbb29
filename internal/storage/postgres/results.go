package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/match"
)

// ErrDuplicateResult is returned when a result for the same match ID is saved twice.
var ErrDuplicateResult = errors.New("match result already saved")

// ResultRepository persists finished matches.
type ResultRepository struct {
	db *pgxpool.Pool
}

// NewResultRepository creates a ResultRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveResult inserts res.
//
// Postcondition: returns ErrDuplicateResult if res.MatchID is already stored.
func (r *ResultRepository) SaveResult(ctx context.Context, res match.Result) error {
	var winner *int16
	if res.Outcome == match.OutcomeWin {
		w := int16(res.Winner)
		winner = &w
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO match_results
			(id, p1_class, p1_weapon, p2_class, p2_weapon, outcome, winner_slot,
			 p1_hp, p2_hp, ticks, simulated_ms, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		res.MatchID,
		res.Fighters[0].ClassID, res.Fighters[0].WeaponID,
		res.Fighters[1].ClassID, res.Fighters[1].WeaponID,
		string(res.Outcome), winner,
		res.HP[0], res.HP[1],
		res.Ticks, res.Simulated.Milliseconds(),
		res.StartedAt, res.FinishedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("match %s: %w", res.MatchID, ErrDuplicateResult)
		}
		return fmt.Errorf("inserting match result: %w", err)
	}
	return nil
}

const selectResult = `
	SELECT id, p1_class, p1_weapon, p2_class, p2_weapon, outcome, winner_slot,
	       p1_hp, p2_hp, ticks, simulated_ms, started_at, finished_at
	FROM match_results`

// Recent returns up to limit results, most recently finished first.
//
// Precondition: limit must be > 0.
func (r *ResultRepository) Recent(ctx context.Context, limit int) ([]match.Result, error) {
	rows, err := r.db.Query(ctx, selectResult+` ORDER BY finished_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing match results: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanResult)
	if err != nil {
		return nil, fmt.Errorf("scanning match results: %w", err)
	}
	return out, nil
}

// ByID returns the result of match id.
func (r *ResultRepository) ByID(ctx context.Context, id uuid.UUID) (match.Result, error) {
	rows, err := r.db.Query(ctx, selectResult+` WHERE id = $1`, id)
	if err != nil {
		return match.Result{}, fmt.Errorf("loading match result: %w", err)
	}
	res, err := pgx.CollectExactlyOneRow(rows, scanResult)
	if errors.Is(err, pgx.ErrNoRows) {
		return match.Result{}, fmt.Errorf("match %s: %w", id, pgx.ErrNoRows)
	}
	if err != nil {
		return match.Result{}, fmt.Errorf("scanning match result: %w", err)
	}
	return res, nil
}

// Record is a class's win/loss/draw tally.
type Record struct {
	Wins   int
	Losses int
	Draws  int
}

// RecordFor tallies every stored match classID took part in. A mirror
// match counts as both a win and a loss.
func (r *ResultRepository) RecordFor(ctx context.Context, classID string) (Record, error) {
	var rec Record
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE (p1_class = $1 AND winner_slot = 1) OR (p2_class = $1 AND winner_slot = 2)),
			COUNT(*) FILTER (WHERE (p1_class = $1 AND winner_slot = 2) OR (p2_class = $1 AND winner_slot = 1)),
			COUNT(*) FILTER (WHERE outcome = 'draw')
		FROM match_results
		WHERE p1_class = $1 OR p2_class = $1`,
		classID,
	).Scan(&rec.Wins, &rec.Losses, &rec.Draws)
	if err != nil {
		return Record{}, fmt.Errorf("tallying record for %q: %w", classID, err)
	}
	return rec, nil
}

func scanResult(row pgx.CollectableRow) (match.Result, error) {
	var (
		res     match.Result
		outcome string
		winner  *int16
		simMS   int64
	)
	err := row.Scan(
		&res.MatchID,
		&res.Fighters[0].ClassID, &res.Fighters[0].WeaponID,
		&res.Fighters[1].ClassID, &res.Fighters[1].WeaponID,
		&outcome, &winner,
		&res.HP[0], &res.HP[1],
		&res.Ticks, &simMS,
		&res.StartedAt, &res.FinishedAt,
	)
	if err != nil {
		return match.Result{}, err
	}
	res.Outcome = match.Outcome(outcome)
	if winner != nil {
		res.Winner = int(*winner)
	}
	res.Simulated = time.Duration(simMS) * time.Millisecond
	return res, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
