package archive

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/archivefile"
)

// PersistentComponent is the opt-in contract for region-scoped subsystems
// that want their data to ride inside the region archive. Save and Load run
// once per archive, inside the same session as the main record. A component
// absent from an archive on load keeps its default state.
type PersistentComponent interface {
	PersistKey() string
	Save(w *FieldWriter) error
	Load(r *FieldReader) error
}

// SchemaProvider is optionally implemented by components that want their
// sub-record validated on load. A validation failure counts as a corrupt
// sub-record: logged, skipped, never fatal.
type SchemaProvider interface {
	Schema() string
}

// ComponentRegistry holds the components registered for one region.
type ComponentRegistry struct {
	comps []PersistentComponent
}

func NewComponentRegistry() *ComponentRegistry { return &ComponentRegistry{} }

func (cr *ComponentRegistry) Register(c PersistentComponent) {
	if c == nil {
		return
	}
	cr.comps = append(cr.comps, c)
}

func (cr *ComponentRegistry) Len() int { return len(cr.comps) }

// keys assigns each component a sanitized, unique sub-record key.
func (cr *ComponentRegistry) keys() []string {
	out := make([]string, len(cr.comps))
	used := map[string]bool{}
	for i, c := range cr.comps {
		key := sanitizeKey(c.PersistKey())
		base := key
		for n := 2; used[key]; n++ {
			key = fmt.Sprintf("%s_%d", base, n)
		}
		used[key] = true
		out[i] = key
	}
	return out
}

func sanitizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "component"
	}
	return b.String()
}

// saveAll writes every component's sub-record into the archive record.
func (cr *ComponentRegistry) saveAll(rec *archivefile.RecordV1) error {
	keys := cr.keys()
	for i, c := range cr.comps {
		w := NewFieldWriter()
		if err := c.Save(w); err != nil {
			return fmt.Errorf("component %s: %w", keys[i], err)
		}
		if len(w.Fields()) == 0 {
			continue
		}
		if rec.Components == nil {
			rec.Components = map[string]map[string]json.RawMessage{}
		}
		rec.Components[keys[i]] = w.Fields()
	}
	return nil
}

// loadAll feeds stored sub-records back to their components. Missing
// sub-records are silently tolerated; schema violations and load errors are
// logged and the component keeps defaults.
func (cr *ComponentRegistry) loadAll(rec archivefile.RecordV1, logger *log.Logger) {
	keys := cr.keys()
	for i, c := range cr.comps {
		fields, ok := rec.Components[keys[i]]
		if !ok {
			continue
		}
		if sp, hasSchema := c.(SchemaProvider); hasSchema {
			if err := validateFields(sp.Schema(), fields); err != nil {
				if logger != nil {
					logger.Printf("component %s: sub-record rejected: %v", keys[i], err)
				}
				continue
			}
		}
		if err := c.Load(NewFieldReader(fields)); err != nil && logger != nil {
			logger.Printf("component %s: load: %v", keys[i], err)
		}
	}
}

func validateFields(schema string, fields map[string]json.RawMessage) error {
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource("component.json", strings.NewReader(schema)); err != nil {
		return err
	}
	s, err := comp.Compile("component.json")
	if err != nil {
		return err
	}
	// Validate the sub-record as one JSON object of its named fields.
	obj := map[string]any{}
	for name, raw := range fields {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		obj[name] = v
	}
	return s.Validate(obj)
}
