package archivefile

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ErrCorrupt marks an archive that opened but failed header or body
// decoding. A short write from an aborted save surfaces as this, and the
// caller treats it like a missing archive rather than crashing.
var ErrCorrupt = errors.New("corrupt archive")

const Version = 1

type Header struct {
	Version       int    `json:"version"`
	RegionID      string `json:"region_id"`
	AbandonedTick uint64 `json:"abandoned_tick"`
}

// RecordV1 is the single top-level record of one region archive file.
type RecordV1 struct {
	Header Header `json:"header"`

	Width  int `json:"width"`
	Height int `json:"height"`
	TileID int `json:"tile_id"`

	// RLE-encoded cell layers; nil when the source layer was inactive.
	Terrain   []byte `json:"terrain"`
	Roof      []byte `json:"roof"`
	Snow      []byte `json:"snow"`
	Pollution []byte `json:"pollution,omitempty"`
	Fog       []byte `json:"fog,omitempty"`

	Entities []EntityV1 `json:"entities"`
	Groups   []GroupV1  `json:"groups,omitempty"`

	// Sibling sub-records emitted by registered persistent components,
	// keyed by sanitized component name, then by field name.
	Components map[string]map[string]json.RawMessage `json:"components,omitempty"`
}

type EntityV1 struct {
	ID   string `json:"id"`
	Def  string `json:"def"`
	Kind int    `json:"kind"`

	Pos [2]int `json:"pos"`
	Rot int    `json:"rot,omitempty"`

	HP    int `json:"hp"`
	MaxHP int `json:"max_hp"`

	Faction   string `json:"faction,omitempty"`
	Humanlike bool   `json:"humanlike,omitempty"`

	Material          int  `json:"material,omitempty"`
	UnderConstruction bool `json:"under_construction,omitempty"`
	NaturalRock       bool `json:"natural_rock,omitempty"`

	RotProgress  float64 `json:"rot_progress,omitempty"`
	RotThreshold float64 `json:"rot_threshold,omitempty"`

	Container bool       `json:"container,omitempty"`
	Occupants []EntityV1 `json:"occupants,omitempty"`

	InnerDeadID string `json:"inner_dead_id,omitempty"`
	GroupID     string `json:"group_id,omitempty"`
	TaskState   string `json:"task_state,omitempty"`
}

type GroupV1 struct {
	ID      string   `json:"id"`
	Def     string   `json:"def"`
	Faction string   `json:"faction,omitempty"`
	OwnedID []string `json:"owned_ids"`
}

// Path returns the archive file for a region id inside dir.
func Path(dir, regionID string) string {
	return filepath.Join(dir, "region_"+sanitize(regionID)+".bin.zst")
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}

func Exists(dir, regionID string) bool {
	_, err := os.Stat(Path(dir, regionID))
	return err == nil
}

func Remove(dir, regionID string) error {
	err := os.Remove(Path(dir, regionID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Write persists the record to its region file. The file is written to a
// temp sibling and renamed so a crash mid-write never leaves a partial file
// under the final name.
func Write(dir string, rec RecordV1) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	final := Path(dir, rec.Header.RegionID)
	tmp := final + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if err := encodeTo(f, rec); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, final)
}

func encodeTo(f *os.File, rec RecordV1) error {
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(rec.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&rec); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return enc.Close()
}

// Read loads a region's archive record. A missing file returns the plain
// os error (callers check os.IsNotExist); anything that fails past open is
// reported as ErrCorrupt.
func Read(dir, regionID string) (RecordV1, error) {
	var rec RecordV1
	f, err := os.Open(Path(dir, regionID))
	if err != nil {
		return rec, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return rec, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return rec, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	var hdr Header
	if err := json.Unmarshal(line, &hdr); err != nil {
		return rec, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}
	if hdr.Version != Version {
		return rec, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, hdr.Version)
	}

	if err := gob.NewDecoder(br).Decode(&rec); err != nil {
		return rec, fmt.Errorf("%w: body: %v", ErrCorrupt, err)
	}
	if rec.Header.RegionID != regionID {
		return rec, fmt.Errorf("%w: record is for region %q", ErrCorrupt, rec.Header.RegionID)
	}
	return rec, nil
}
