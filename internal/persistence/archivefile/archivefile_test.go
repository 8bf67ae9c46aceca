package archivefile

import (
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func sampleRecord(regionID string) RecordV1 {
	return RecordV1{
		Header:  Header{Version: Version, RegionID: regionID, AbandonedTick: 123456},
		Width:   4,
		Height:  3,
		TileID:  7,
		Terrain: []byte{1, 2, 3},
		Entities: []EntityV1{
			{
				ID: "e1", Def: "stone_wall", Kind: 1,
				HP: 90, MaxHP: 100, Material: 3, Faction: "colony",
			},
			{
				ID: "pod", Def: "casket", Kind: 1, Container: true,
				Occupants: []EntityV1{{ID: "corpse1", Def: "corpse", Kind: 5, InnerDeadID: "d1"}},
			},
		},
		Groups: []GroupV1{{ID: "g1", Def: "raid", Faction: "wargs", OwnedID: []string{"e1"}}},
		Components: map[string]map[string]json.RawMessage{
			"weather": {"snowpack": json.RawMessage(`4`)},
		},
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := sampleRecord("r1")
	if err := Write(dir, rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !Exists(dir, "r1") {
		t.Fatal("archive should exist after write")
	}

	got, err := Read(dir, "r1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header != rec.Header || got.Width != 4 || got.Height != 3 || got.TileID != 7 {
		t.Fatalf("header mismatch: %+v", got.Header)
	}
	if len(got.Entities) != 2 || got.Entities[0].ID != "e1" {
		t.Fatalf("entities: %+v", got.Entities)
	}
	occ := got.Entities[1].Occupants
	if len(occ) != 1 || occ[0].InnerDeadID != "d1" {
		t.Fatalf("nested occupant lost: %+v", occ)
	}
	if len(got.Groups) != 1 || got.Groups[0].OwnedID[0] != "e1" {
		t.Fatalf("groups: %+v", got.Groups)
	}
	if string(got.Components["weather"]["snowpack"]) != "4" {
		t.Fatalf("components: %+v", got.Components)
	}
}

func TestRead_Missing(t *testing.T) {
	_, err := Read(t.TempDir(), "nope")
	if !os.IsNotExist(err) {
		t.Fatalf("want not-exist, got %v", err)
	}
}

func TestRead_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(Path(dir, "r1"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Read(dir, "r1")
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt, got %v", err)
	}
}

func TestRead_TruncatedFile(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, sampleRecord("r1")); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(Path(dir, "r1"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(dir, "r1"), b[:len(b)/2], 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(dir, "r1"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt, got %v", err)
	}
}

func TestRead_RegionIDMismatch(t *testing.T) {
	dir := t.TempDir()
	rec := sampleRecord("real")
	if err := Write(dir, rec); err != nil {
		t.Fatal(err)
	}
	// Rename the file so the requested id and the header disagree.
	if err := os.Rename(Path(dir, "real"), Path(dir, "fake")); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(dir, "fake"); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("want ErrCorrupt on id mismatch, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, sampleRecord("r1")); err != nil {
		t.Fatal(err)
	}
	if err := Remove(dir, "r1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if Exists(dir, "r1") {
		t.Fatal("archive should be gone")
	}
	if err := Remove(dir, "r1"); err != nil {
		t.Fatalf("second remove should be a no-op, got %v", err)
	}
}

func TestPath_SanitizesRegionID(t *testing.T) {
	if got := Path("/data", "hills/..\\x"); got != "/data/region_hills___x.bin.zst" {
		t.Fatalf("path = %q", got)
	}
	if got := Path("/data", ""); got != "/data/region_unnamed.bin.zst" {
		t.Fatalf("empty id path = %q", got)
	}
}
