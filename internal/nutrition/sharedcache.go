// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package nutrition

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const foodCacheSchema = `
CREATE TABLE IF NOT EXISTS food_cache (
	key       TEXT PRIMARY KEY,
	food_id   TEXT NOT NULL,
	provider  TEXT NOT NULL,
	name      TEXT NOT NULL,
	kcal      REAL NOT NULL,
	protein_g REAL NOT NULL,
	carbs_g   REAL NOT NULL,
	fat_g     REAL NOT NULL,
	fiber_g   REAL NOT NULL
);
`

// SQLiteStore is the shared cache tier backed by a SQLite file so concurrent
// workers on one host reuse each other's provider hits.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the shared cache database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening food cache: %w", err)
	}
	if _, err := db.Exec(foodCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing food cache schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Get returns the cached record for key, if present.
func (s *SQLiteStore) Get(ctx context.Context, key string) (FoodRecord, bool, error) {
	var rec FoodRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT food_id, provider, name, kcal, protein_g, carbs_g, fat_g, fiber_g
		 FROM food_cache WHERE key = ?`, key,
	).Scan(&rec.FoodID, &rec.Provider, &rec.Name,
		&rec.Per100g.Kcal, &rec.Per100g.ProteinG, &rec.Per100g.CarbsG,
		&rec.Per100g.FatG, &rec.Per100g.FiberG)
	if errors.Is(err, sql.ErrNoRows) {
		return FoodRecord{}, false, nil
	}
	if err != nil {
		return FoodRecord{}, false, fmt.Errorf("reading food cache: %w", err)
	}
	return rec, true, nil
}

// Put upserts the record for key. Filling the same key again overwrites in
// place, so concurrent workers racing on the same ingredient is harmless.
func (s *SQLiteStore) Put(ctx context.Context, key string, rec FoodRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO food_cache (key, food_id, provider, name, kcal, protein_g, carbs_g, fat_g, fiber_g)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			food_id = excluded.food_id,
			provider = excluded.provider,
			name = excluded.name,
			kcal = excluded.kcal,
			protein_g = excluded.protein_g,
			carbs_g = excluded.carbs_g,
			fat_g = excluded.fat_g,
			fiber_g = excluded.fiber_g`,
		key, rec.FoodID, rec.Provider, rec.Name,
		rec.Per100g.Kcal, rec.Per100g.ProteinG, rec.Per100g.CarbsG,
		rec.Per100g.FatG, rec.Per100g.FiberG)
	if err != nil {
		return fmt.Errorf("writing food cache: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
