package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex is the world session's durable index: one row per region
// archive on disk, and the persisted side-registry payload per region so
// extracted entities survive host restarts between abandon and restore.
// Writes flow through a single writer goroutine.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqArchive reqKind = iota + 1
	reqArchiveRemove
	reqSide
	reqSideDelete
	reqFlush
)

type req struct {
	kind reqKind

	archive  ArchiveRow
	regionID string
	payload  []byte
	done     chan struct{}
}

// ArchiveRow describes one archive file.
type ArchiveRow struct {
	RegionID      string
	AbandonedTick uint64
	Path          string
	Entities      int
	Groups        int
	RecordedAt    string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL suits the append-style workload; NORMAL is enough durability for
	// a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS archives (
			region_id TEXT PRIMARY KEY,
			abandoned_tick INTEGER NOT NULL,
			path TEXT NOT NULL,
			entity_count INTEGER NOT NULL,
			group_count INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_archives_tick ON archives(abandoned_tick);`,
		`CREATE TABLE IF NOT EXISTS side_registries (
			region_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordArchive indexes a freshly written archive file.
func (s *SQLiteIndex) RecordArchive(regionID string, abandonedTick uint64, path string, entities, groups int) {
	if s == nil || s.closed.Load() || regionID == "" {
		return
	}
	row := ArchiveRow{
		RegionID:      regionID,
		AbandonedTick: abandonedTick,
		Path:          path,
		Entities:      entities,
		Groups:        groups,
		RecordedAt:    time.Now().UTC().Format(time.RFC3339Nano),
	}
	s.send(req{kind: reqArchive, archive: row})
}

// RemoveArchive drops the index row after a load consumed the file.
func (s *SQLiteIndex) RemoveArchive(regionID string) {
	if s == nil || s.closed.Load() {
		return
	}
	s.send(req{kind: reqArchiveRemove, regionID: regionID})
}

// PutSideRegistry persists a region's side-registry payload.
func (s *SQLiteIndex) PutSideRegistry(regionID string, payload []byte) {
	if s == nil || s.closed.Load() || regionID == "" {
		return
	}
	s.send(req{kind: reqSide, regionID: regionID, payload: payload})
}

// DeleteSideRegistry drops a drained side registry.
func (s *SQLiteIndex) DeleteSideRegistry(regionID string) {
	if s == nil || s.closed.Load() {
		return
	}
	s.send(req{kind: reqSideDelete, regionID: regionID})
}

// send blocks rather than drops: the index carries the only durable copy of
// side registries, so losing rows is worse than a short stall.
func (s *SQLiteIndex) send(r req) {
	defer func() {
		// Channel may close concurrently with a late write.
		_ = recover()
	}()
	s.ch <- r
}

func (s *SQLiteIndex) loop() {
	for r := range s.ch {
		var err error
		switch r.kind {
		case reqArchive:
			_, err = s.db.Exec(`INSERT INTO archives
				(region_id, abandoned_tick, path, entity_count, group_count, recorded_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT(region_id) DO UPDATE SET
					abandoned_tick=excluded.abandoned_tick,
					path=excluded.path,
					entity_count=excluded.entity_count,
					group_count=excluded.group_count,
					recorded_at=excluded.recorded_at`,
				r.archive.RegionID, int64(r.archive.AbandonedTick), r.archive.Path,
				r.archive.Entities, r.archive.Groups, r.archive.RecordedAt)
		case reqArchiveRemove:
			_, err = s.db.Exec(`DELETE FROM archives WHERE region_id = ?`, r.regionID)
		case reqSide:
			_, err = s.db.Exec(`INSERT INTO side_registries (region_id, payload, updated_at)
				VALUES (?, ?, ?)
				ON CONFLICT(region_id) DO UPDATE SET
					payload=excluded.payload,
					updated_at=excluded.updated_at`,
				r.regionID, string(r.payload), time.Now().UTC().Format(time.RFC3339Nano))
		case reqSideDelete:
			_, err = s.db.Exec(`DELETE FROM side_registries WHERE region_id = ?`, r.regionID)
		case reqFlush:
			close(r.done)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "indexdb: write: %v\n", err)
		}
	}
}

// Flush waits for queued writes to land. Reads after Flush observe them.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	delivered := true
	func() {
		defer func() {
			if recover() != nil {
				delivered = false
			}
		}()
		s.ch <- req{kind: reqFlush, done: done}
	}()
	if delivered {
		<-done
	}
}

// ListArchives returns every indexed archive, oldest abandonment first.
func (s *SQLiteIndex) ListArchives(ctx context.Context) ([]ArchiveRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT region_id, abandoned_tick, path,
		entity_count, group_count, recorded_at FROM archives ORDER BY abandoned_tick ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchiveRow
	for rows.Next() {
		var r ArchiveRow
		var tick int64
		if err := rows.Scan(&r.RegionID, &tick, &r.Path, &r.Entities, &r.Groups, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.AbandonedTick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetArchive looks up one region's archive row.
func (s *SQLiteIndex) GetArchive(ctx context.Context, regionID string) (ArchiveRow, bool, error) {
	var r ArchiveRow
	var tick int64
	err := s.db.QueryRowContext(ctx, `SELECT region_id, abandoned_tick, path,
		entity_count, group_count, recorded_at FROM archives WHERE region_id = ?`, regionID).
		Scan(&r.RegionID, &tick, &r.Path, &r.Entities, &r.Groups, &r.RecordedAt)
	if err == sql.ErrNoRows {
		return r, false, nil
	}
	if err != nil {
		return r, false, err
	}
	r.AbandonedTick = uint64(tick)
	return r, true, nil
}

// GetSideRegistry returns a region's persisted side-registry payload.
func (s *SQLiteIndex) GetSideRegistry(ctx context.Context, regionID string) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM side_registries WHERE region_id = ?`, regionID).
		Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(payload), true, nil
}

// ListSideRegistries returns every persisted side registry, for rehydrating
// the in-memory side table at host startup.
func (s *SQLiteIndex) ListSideRegistries(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT region_id, payload FROM side_registries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]byte{}
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		out[id] = []byte(payload)
	}
	return out, rows.Err()
}
