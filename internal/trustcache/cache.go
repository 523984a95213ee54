// Package trustcache persists package trust verdicts in a local sqlite
// database so repeated scans do not re-fetch registry metadata. Entries
// expire after a TTL.
package trustcache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/depgate/internal/model"
)

// DefaultTTL bounds how long a cached verdict is trusted.
const DefaultTTL = time.Hour

const schema = `
CREATE TABLE IF NOT EXISTS verdicts (
	name            TEXT    NOT NULL,
	version         TEXT    NOT NULL,
	safe            INTEGER NOT NULL,
	publisher_score REAL    NOT NULL,
	issues          TEXT    NOT NULL,
	created_at      INTEGER NOT NULL,
	PRIMARY KEY (name, version)
)`

// Cache is a TTL-bounded verdict store. Safe for concurrent use.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Open creates or opens the cache database at path. A non-positive ttl
// selects DefaultTTL.
func Open(path string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("trustcache: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("trustcache: init schema: %w", err)
	}
	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached verdict for name@version, reporting a miss for
// absent or expired entries.
func (c *Cache) Get(name, version string) (*model.TrustAssessment, bool, error) {
	row := c.db.QueryRow(
		`SELECT safe, publisher_score, issues, created_at FROM verdicts WHERE name = ? AND version = ?`,
		name, version,
	)
	var (
		safe      bool
		score     float64
		issuesRaw string
		createdAt int64
	)
	if err := row.Scan(&safe, &score, &issuesRaw, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("trustcache: get: %w", err)
	}
	if c.now().Unix()-createdAt >= int64(c.ttl.Seconds()) {
		return nil, false, nil
	}
	var issues []model.Issue
	if err := json.Unmarshal([]byte(issuesRaw), &issues); err != nil {
		return nil, false, fmt.Errorf("trustcache: decode issues: %w", err)
	}
	return &model.TrustAssessment{
		PackageName:    name,
		Version:        version,
		Safe:           safe,
		Issues:         issues,
		PublisherScore: score,
	}, true, nil
}

// Put stores or refreshes a verdict.
func (c *Cache) Put(a *model.TrustAssessment) error {
	issues, err := json.Marshal(a.Issues)
	if err != nil {
		return fmt.Errorf("trustcache: encode issues: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO verdicts (name, version, safe, publisher_score, issues, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.PackageName, a.Version, a.Safe, a.PublisherScore, string(issues), c.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("trustcache: put: %w", err)
	}
	return nil
}

// Purge deletes expired entries and reports how many were removed.
func (c *Cache) Purge() (int64, error) {
	cutoff := c.now().Unix() - int64(c.ttl.Seconds())
	res, err := c.db.Exec(`DELETE FROM verdicts WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("trustcache: purge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("trustcache: purge: %w", err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error { return c.db.Close() }
