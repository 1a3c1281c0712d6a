package registrycache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Cache is the SQLite-backed games-registry/game-manifest cache.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if absent) a cache database at dbPath with WAL
// mode enabled, mirroring canopy's internal/store.NewStore connection
// string.
func Open(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("registrycache: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("registrycache: ping: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Migrate creates the cache's tables. Idempotent.
func (c *Cache) Migrate() error {
	if _, err := c.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("registrycache: migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS registries (
  url         TEXT PRIMARY KEY,
  payload     BLOB NOT NULL,
  fetched_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS games (
  slug          TEXT PRIMARY KEY,
  title         TEXT NOT NULL,
  registry_url  TEXT NOT NULL REFERENCES registries(url),
  payload       BLOB NOT NULL,
  fetched_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_games_registry ON games(registry_url);

CREATE TABLE IF NOT EXISTS game_tags (
  slug  TEXT NOT NULL REFERENCES games(slug),
  tag   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_game_tags_tag ON game_tags(tag);
CREATE INDEX IF NOT EXISTS idx_game_tags_slug ON game_tags(slug);
`

// GameSummary is a catalog-browsing row: enough to list or filter games
// by tag without deserializing every cached manifest payload.
type GameSummary struct {
	Slug  string
	Title string
}

// PutRegistry upserts the raw bytes of a fetched games-registry manifest.
func (c *Cache) PutRegistry(url string, payload []byte, fetchedAt int64) error {
	_, err := c.db.Exec(
		`INSERT INTO registries (url, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		url, payload, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("registrycache: put registry %s: %w", url, err)
	}
	return nil
}

// GetRegistry returns a cached registry's raw bytes, or ok=false if absent.
func (c *Cache) GetRegistry(url string) (payload []byte, fetchedAt int64, ok bool, err error) {
	row := c.db.QueryRow(`SELECT payload, fetched_at FROM registries WHERE url = ?`, url)
	if scanErr := row.Scan(&payload, &fetchedAt); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("registrycache: get registry %s: %w", url, scanErr)
	}
	return payload, fetchedAt, true, nil
}

// PutGame upserts a fetched game manifest's raw bytes, scoped to the
// registry it was discovered through, along with its display title and
// catalog tags so games can be listed/filtered without touching payload.
func (c *Cache) PutGame(slug, title, registryURL string, tags []string, payload []byte, fetchedAt int64) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("registrycache: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO games (slug, title, registry_url, payload, fetched_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET title = excluded.title, registry_url = excluded.registry_url,
		   payload = excluded.payload, fetched_at = excluded.fetched_at`,
		slug, title, registryURL, payload, fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("registrycache: put game %s: %w", slug, err)
	}

	if _, err := tx.Exec(`DELETE FROM game_tags WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("registrycache: clear tags for %s: %w", slug, err)
	}
	for _, tag := range tags {
		if _, err := tx.Exec(`INSERT INTO game_tags (slug, tag) VALUES (?, ?)`, slug, tag); err != nil {
			return fmt.Errorf("registrycache: put tag %s for %s: %w", tag, slug, err)
		}
	}

	return tx.Commit()
}

// ListGamesByTag returns every cached game tagged with tag, ordered by
// slug for deterministic output.
func (c *Cache) ListGamesByTag(tag string) ([]GameSummary, error) {
	rows, err := c.db.Query(
		`SELECT games.slug, games.title FROM games
		 JOIN game_tags ON game_tags.slug = games.slug
		 WHERE game_tags.tag = ?
		 ORDER BY games.slug`,
		tag,
	)
	if err != nil {
		return nil, fmt.Errorf("registrycache: list games tagged %s: %w", tag, err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var s GameSummary
		if err := rows.Scan(&s.Slug, &s.Title); err != nil {
			return nil, fmt.Errorf("registrycache: scan game row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registrycache: list games tagged %s: %w", tag, err)
	}
	return out, nil
}

// ListGames returns every cached game, ordered by slug.
func (c *Cache) ListGames() ([]GameSummary, error) {
	rows, err := c.db.Query(`SELECT slug, title FROM games ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("registrycache: list games: %w", err)
	}
	defer rows.Close()

	var out []GameSummary
	for rows.Next() {
		var s GameSummary
		if err := rows.Scan(&s.Slug, &s.Title); err != nil {
			return nil, fmt.Errorf("registrycache: scan game row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("registrycache: list games: %w", err)
	}
	return out, nil
}

// GetGame returns a cached game manifest's raw bytes, or ok=false if absent.
func (c *Cache) GetGame(slug string) (payload []byte, fetchedAt int64, ok bool, err error) {
	row := c.db.QueryRow(`SELECT payload, fetched_at FROM games WHERE slug = ?`, slug)
	if scanErr := row.Scan(&payload, &fetchedAt); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("registrycache: get game %s: %w", slug, scanErr)
	}
	return payload, fetchedAt, true, nil
}

// InvalidateRegistry transactionally removes a registry and every game
// cached under it, mirroring canopy's Store.DeleteFileData's
// begin/defer-rollback/commit shape for a multi-table cascade.
func (c *Cache) InvalidateRegistry(url string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("registrycache: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM game_tags WHERE slug IN (SELECT slug FROM games WHERE registry_url = ?)`, url,
	); err != nil {
		return fmt.Errorf("registrycache: delete tags for %s: %w", url, err)
	}
	if _, err := tx.Exec(`DELETE FROM games WHERE registry_url = ?`, url); err != nil {
		return fmt.Errorf("registrycache: delete games for %s: %w", url, err)
	}
	if _, err := tx.Exec(`DELETE FROM registries WHERE url = ?`, url); err != nil {
		return fmt.Errorf("registrycache: delete registry %s: %w", url, err)
	}
	return tx.Commit()
}
