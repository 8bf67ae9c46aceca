package indexdb

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestIndex(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestArchiveRows_UpsertListRemove(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	idx.RecordArchive("r2", 2000, "/a/r2", 5, 1)
	idx.RecordArchive("r1", 1000, "/a/r1", 3, 0)
	idx.RecordArchive("r1", 1500, "/a/r1", 4, 0) // upsert
	idx.Flush()

	rows, err := idx.ListArchives(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// Oldest abandonment first.
	if rows[0].RegionID != "r1" || rows[0].AbandonedTick != 1500 || rows[0].Entities != 4 {
		t.Fatalf("upserted row wrong: %+v", rows[0])
	}
	if rows[1].RegionID != "r2" {
		t.Fatalf("ordering wrong: %+v", rows)
	}

	row, ok, err := idx.GetArchive(ctx, "r2")
	if err != nil || !ok || row.Groups != 1 {
		t.Fatalf("get r2: %+v ok=%v err=%v", row, ok, err)
	}

	idx.RemoveArchive("r1")
	idx.Flush()
	if _, ok, _ := idx.GetArchive(ctx, "r1"); ok {
		t.Fatal("removed row still present")
	}
}

func TestSideRegistries_PersistAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	idx.PutSideRegistry("r1", []byte(`{"sleeping":[]}`))
	idx.PutSideRegistry("r2", []byte(`{"owned_animals":[]}`))
	idx.Flush()
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx2, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx2.Close()

	all, err := idx2.ListSideRegistries(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || string(all["r1"]) != `{"sleeping":[]}` {
		t.Fatalf("side registries = %v", all)
	}

	idx2.DeleteSideRegistry("r1")
	idx2.Flush()
	if _, ok, _ := idx2.GetSideRegistry(context.Background(), "r1"); ok {
		t.Fatal("deleted side registry still present")
	}
	if payload, ok, _ := idx2.GetSideRegistry(context.Background(), "r2"); !ok || len(payload) == 0 {
		t.Fatal("surviving side registry lost")
	}
}

func TestWritesAfterCloseAreDropped(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Must not panic or block.
	idx.RecordArchive("r1", 1, "/a/r1", 0, 0)
	idx.PutSideRegistry("r1", []byte("{}"))
	idx.Flush()
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatal("empty path should error")
	}
}
