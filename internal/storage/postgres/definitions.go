package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/ruleset"
)

// DefinitionRepository stores class and weapon definitions as JSONB and
// serves them as a ruleset.Source.
type DefinitionRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewDefinitionRepository creates a DefinitionRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool; logger must be non-nil.
func NewDefinitionRepository(db *pgxpool.Pool, logger *zap.Logger) *DefinitionRepository {
	return &DefinitionRepository{db: db, logger: logger}
}

const (
	upsertClassSQL = `
		INSERT INTO class_definitions (id, body) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`
	upsertWeaponSQL = `
		INSERT INTO weapon_definitions (id, body) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = NOW()`
)

type definition[T any] interface {
	*T
	Normalize(logger *zap.Logger)
	Validate() error
}

// Class returns the class with id, or an error wrapping ruleset.ErrNotFound.
//
// Postcondition: the returned definition has been normalized and validated.
func (r *DefinitionRepository) Class(ctx context.Context, id string) (*ruleset.ClassDef, error) {
	return fetch[ruleset.ClassDef](ctx, r, "class", `SELECT body FROM class_definitions WHERE id = $1`, id)
}

// Weapon returns the weapon with id, or an error wrapping ruleset.ErrNotFound.
//
// Postcondition: the returned definition has been normalized and validated.
func (r *DefinitionRepository) Weapon(ctx context.Context, id string) (*ruleset.WeaponDef, error) {
	return fetch[ruleset.WeaponDef](ctx, r, "weapon", `SELECT body FROM weapon_definitions WHERE id = $1`, id)
}

func fetch[T any, P definition[T]](ctx context.Context, r *DefinitionRepository, kind, query, id string) (*T, error) {
	var body []byte
	err := r.db.QueryRow(ctx, query, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", kind, id, ruleset.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s %q: %w", kind, id, err)
	}
	def, err := ruleset.DecodeJSON[T](body, r.logger.With(zap.String(kind, id)))
	if err != nil {
		return nil, fmt.Errorf("decoding %s %q: %w", kind, id, err)
	}
	P(def).Normalize(r.logger)
	if err := P(def).Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// ClassIDs returns all stored class IDs in lexical order.
func (r *DefinitionRepository) ClassIDs(ctx context.Context) ([]string, error) {
	return r.ids(ctx, `SELECT id FROM class_definitions ORDER BY id`)
}

// WeaponIDs returns all stored weapon IDs in lexical order.
func (r *DefinitionRepository) WeaponIDs(ctx context.Context) ([]string, error) {
	return r.ids(ctx, `SELECT id FROM weapon_definitions ORDER BY id`)
}

func (r *DefinitionRepository) ids(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing definitions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning definition ids: %w", err)
	}
	return ids, nil
}

// UpsertClass stores def, replacing any class with the same ID.
//
// Precondition: def must be valid.
func (r *DefinitionRepository) UpsertClass(ctx context.Context, def *ruleset.ClassDef) error {
	return upsert(ctx, r.db, upsertClassSQL, def.ID, def)
}

// UpsertWeapon stores def, replacing any weapon with the same ID.
//
// Precondition: def must be valid.
func (r *DefinitionRepository) UpsertWeapon(ctx context.Context, def *ruleset.WeaponDef) error {
	return upsert(ctx, r.db, upsertWeaponSQL, def.ID, def)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsert(ctx context.Context, db execer, query, id string, def any) error {
	body, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("encoding definition %q: %w", id, err)
	}
	if _, err := db.Exec(ctx, query, id, body); err != nil {
		return fmt.Errorf("storing definition %q: %w", id, err)
	}
	return nil
}

// Import copies every definition in src into the database in one
// transaction and returns how many classes and weapons were written.
//
// Postcondition: on error nothing is written.
func (r *DefinitionRepository) Import(ctx context.Context, src ruleset.Source) (classes, weapons int, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	classIDs, err := src.ClassIDs(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range classIDs {
		def, err := src.Class(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		if err := upsert(ctx, tx, upsertClassSQL, id, def); err != nil {
			return 0, 0, err
		}
	}
	weaponIDs, err := src.WeaponIDs(ctx)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range weaponIDs {
		def, err := src.Weapon(ctx, id)
		if err != nil {
			return 0, 0, err
		}
		if err := upsert(ctx, tx, upsertWeaponSQL, id, def); err != nil {
			return 0, 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("committing import: %w", err)
	}
	return len(classIDs), len(weaponIDs), nil
}
