package imagecache

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"
)

// ErrQuotaExceeded reports that a metadata write hit a storage quota. The
// store has already wiped itself and dropped the write by the time callers
// see this error; the in-memory pixel cache is unaffected.
var ErrQuotaExceeded = errors.New("imagecache: metadata quota exceeded")

// MetaStore persists small key/value records with a time-to-live, separate
// from the pixel cache. Its availability policy is deliberate: when the
// underlying store reports a quota/disk-full error on write, every record is
// deleted and the write is dropped rather than failing the caller's
// operation.
type MetaStore struct {
	conn  *sql.DB
	sched *cron.Cron
	now   func() time.Time
}

// OpenMetaStore opens (or creates) the SQLite file at dbPath and starts a
// periodic purge of expired records.
func OpenMetaStore(dbPath string) (*MetaStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create metadata directory: %w", err)
	}
	conn, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite only supports one writer; a single connection avoids SQLITE_BUSY
	conn.SetMaxOpenConns(1)

	m := &MetaStore{conn: conn, now: time.Now}
	if err := m.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	m.sched = cron.New()
	if _, err := m.sched.AddFunc("@every 10m", m.purgeExpired); err != nil {
		conn.Close()
		return nil, fmt.Errorf("schedule purge: %w", err)
	}
	m.sched.Start()
	return m, nil
}

func (m *MetaStore) migrate() error {
	_, err := m.conn.Exec(`CREATE TABLE IF NOT EXISTS meta (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`)
	return err
}

// Put stores value under key for the given TTL. On a quota error the whole
// store is cleared, the write is dropped, and ErrQuotaExceeded is returned.
func (m *MetaStore) Put(key string, value []byte, ttl time.Duration) error {
	expires := m.now().Add(ttl).UnixMilli()
	_, err := m.conn.Exec(
		`INSERT INTO meta (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expires,
	)
	if err == nil {
		return nil
	}
	if !isQuotaErr(err) {
		return fmt.Errorf("metadata put %q: %w", key, err)
	}
	log.Printf("imagecache: metadata quota hit, clearing store (dropped write for %q)", key)
	if _, werr := m.conn.Exec(`DELETE FROM meta`); werr != nil {
		log.Printf("imagecache: metadata wipe failed: %v", werr)
	}
	return ErrQuotaExceeded
}

// Get returns the value stored under key. Expired records read as missing.
func (m *MetaStore) Get(key string) ([]byte, bool, error) {
	var value []byte
	var expires int64
	err := m.conn.QueryRow(`SELECT value, expires_at FROM meta WHERE key = ?`, key).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("metadata get %q: %w", key, err)
	}
	if m.now().UnixMilli() >= expires {
		return nil, false, nil
	}
	return value, true, nil
}

// Delete removes key if present.
func (m *MetaStore) Delete(key string) error {
	if _, err := m.conn.Exec(`DELETE FROM meta WHERE key = ?`, key); err != nil {
		return fmt.Errorf("metadata delete %q: %w", key, err)
	}
	return nil
}

func (m *MetaStore) purgeExpired() {
	if _, err := m.conn.Exec(`DELETE FROM meta WHERE expires_at <= ?`, m.now().UnixMilli()); err != nil {
		log.Printf("imagecache: metadata purge failed: %v", err)
	}
}

// Close stops the purge schedule and closes the database.
func (m *MetaStore) Close() error {
	if m.sched != nil {
		m.sched.Stop()
	}
	return m.conn.Close()
}

// isQuotaErr matches the SQLITE_FULL family of errors.
func isQuotaErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database or disk is full") || strings.Contains(msg, "sqlite_full")
}
