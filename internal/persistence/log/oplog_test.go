package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestOpLog_WriteAndReadBack(t *testing.T) {
	dir := t.TempDir()
	l := NewOpLog(dir)

	type entry struct {
		Type     string `json:"type"`
		RegionID string `json:"region_id"`
	}
	if err := l.Write(entry{Type: "region_saved", RegionID: "r1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Write(entry{Type: "region_loaded", RegionID: "r1"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "ops", "ops-*.jsonl.zst"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected one log file, got %v (err %v)", files, err)
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer zr.Close()

	sc := bufio.NewScanner(zr)
	var got []entry
	for sc.Scan() {
		var e entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal %q: %v", sc.Text(), err)
		}
		got = append(got, e)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 || got[0].Type != "region_saved" || got[1].Type != "region_loaded" {
		t.Fatalf("unexpected entries: %+v", got)
	}
}
