package archive

import (
	"io"
	"log"
	"testing"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/archivefile"
)

type weatherComp struct {
	Snowpack int
	Storms   int
}

func (c *weatherComp) PersistKey() string { return "Weather Station!" }

func (c *weatherComp) Save(w *FieldWriter) error {
	if err := w.WriteField("snowpack", c.Snowpack); err != nil {
		return err
	}
	return w.WriteField("storms", c.Storms)
}

func (c *weatherComp) Load(r *FieldReader) error {
	if _, err := r.ReadField("snowpack", &c.Snowpack); err != nil {
		return err
	}
	_, err := r.ReadField("storms", &c.Storms)
	return err
}

func (c *weatherComp) Schema() string {
	return `{
		"$schema": "https://json-schema.org/draft/2020-12/schema",
		"type": "object",
		"properties": {
			"snowpack": {"type": "integer", "minimum": 0},
			"storms": {"type": "integer", "minimum": 0}
		}
	}`
}

type emptyComp struct{}

func (emptyComp) PersistKey() string        { return "empty" }
func (emptyComp) Save(w *FieldWriter) error { return nil }
func (emptyComp) Load(r *FieldReader) error { return nil }

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func TestComponents_RoundTrip(t *testing.T) {
	saveReg := NewComponentRegistry()
	saveReg.Register(&weatherComp{Snowpack: 4, Storms: 2})
	saveReg.Register(emptyComp{})

	var rec archivefile.RecordV1
	if err := saveReg.saveAll(&rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok := rec.Components["weather_station_"]; !ok {
		t.Fatalf("sanitized sub-record key missing; have %v", rec.Components)
	}
	if _, ok := rec.Components["empty"]; ok {
		t.Fatal("component with no fields should not leave a sub-record")
	}

	loadReg := NewComponentRegistry()
	restored := &weatherComp{}
	loadReg.Register(restored)
	loadReg.loadAll(rec, discard())

	if restored.Snowpack != 4 || restored.Storms != 2 {
		t.Fatalf("restored %+v", restored)
	}
}

func TestComponents_AbsentSubRecordKeepsDefaults(t *testing.T) {
	reg := NewComponentRegistry()
	c := &weatherComp{Snowpack: 9}
	reg.Register(c)

	reg.loadAll(archivefile.RecordV1{}, discard())
	if c.Snowpack != 9 {
		t.Fatal("absent sub-record must not touch defaults")
	}
}

func TestComponents_SchemaViolationSkipsLoad(t *testing.T) {
	saveReg := NewComponentRegistry()
	saveReg.Register(&badWeatherComp{})
	var rec archivefile.RecordV1
	if err := saveReg.saveAll(&rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	loadReg := NewComponentRegistry()
	c := &weatherComp{Snowpack: 7, Storms: 7}
	loadReg.Register(c)
	loadReg.loadAll(rec, discard())

	if c.Snowpack != 7 || c.Storms != 7 {
		t.Fatalf("schema-rejected sub-record was applied: %+v", c)
	}
}

// badWeatherComp writes a sub-record under the weather component's key that
// violates its schema.
type badWeatherComp struct{}

func (badWeatherComp) PersistKey() string { return "Weather Station!" }
func (badWeatherComp) Save(w *FieldWriter) error {
	return w.WriteField("snowpack", "not a number")
}
func (badWeatherComp) Load(r *FieldReader) error { return nil }

func TestComponents_DuplicateKeysUniquified(t *testing.T) {
	reg := NewComponentRegistry()
	reg.Register(&weatherComp{Snowpack: 1})
	reg.Register(&weatherComp{Snowpack: 2})

	var rec archivefile.RecordV1
	if err := reg.saveAll(&rec); err != nil {
		t.Fatal(err)
	}
	if len(rec.Components) != 2 {
		t.Fatalf("want 2 distinct sub-records, got %v", rec.Components)
	}
	if _, ok := rec.Components["weather_station__2"]; !ok {
		t.Fatalf("second key not uniquified; have %v", rec.Components)
	}
}
