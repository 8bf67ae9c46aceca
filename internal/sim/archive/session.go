package archive

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RefOrigin tags a resolution target by which session registered it.
type RefOrigin int

const (
	// OriginFragment marks objects deserialized from the region archive.
	OriginFragment RefOrigin = iota + 1
	// OriginLive marks pre-registered live world objects (factions,
	// long-lived agents) that fragment references may point at.
	OriginLive
)

var ErrIdentityCollision = errors.New("identity collision")

// Session drives one save or load pass. Cross-references are queued while
// objects deserialize and resolved in exactly one pass, after every target
// from both the archive fragment and the live world has been registered and
// before any post-load initializer runs.
type Session struct {
	loading bool

	targets map[string]any
	origins map[string]RefOrigin

	pending  []pendingRef
	postInit []func() error

	resolved  bool
	ranInit   bool
	finalized bool

	dangling []string
}

type pendingRef struct {
	id     string
	assign func(any)
}

func NewSaveSession() *Session { return newSession(false) }
func NewLoadSession() *Session { return newSession(true) }

func newSession(loading bool) *Session {
	return &Session{
		loading: loading,
		targets: map[string]any{},
		origins: map[string]RefOrigin{},
	}
}

func (s *Session) Loading() bool { return s.loading }

// RegisterTarget makes an object addressable for reference resolution. Two
// registrations of one id are an identity collision; the error carries both
// origins for the diagnostic log.
func (s *Session) RegisterTarget(id string, obj any, origin RefOrigin) error {
	if id == "" {
		return fmt.Errorf("register target: empty id")
	}
	if prev, ok := s.origins[id]; ok {
		return fmt.Errorf("%w: id %s registered by origin %d and %d",
			ErrIdentityCollision, id, prev, origin)
	}
	s.targets[id] = obj
	s.origins[id] = origin
	return nil
}

func (s *Session) Target(id string) (any, bool) {
	obj, ok := s.targets[id]
	return obj, ok
}

func (s *Session) TargetCount() int { return len(s.targets) }

// Resolve queues a reference for the resolution pass. assign receives the
// target object, or nil if the id resolves nowhere (a dangling edge).
func (s *Session) Resolve(id string, assign func(any)) {
	s.pending = append(s.pending, pendingRef{id: id, assign: assign})
}

// ResolveAll runs the queued references once against the merged target set.
func (s *Session) ResolveAll() error {
	if s.resolved {
		return fmt.Errorf("resolve: already ran for this session")
	}
	s.resolved = true
	for _, p := range s.pending {
		obj, ok := s.targets[p.id]
		if !ok {
			s.dangling = append(s.dangling, p.id)
			p.assign(nil)
			continue
		}
		p.assign(obj)
	}
	s.pending = nil
	return nil
}

// Dangling lists the ids of references that resolved nowhere.
func (s *Session) Dangling() []string { return s.dangling }

// OnPostInit schedules an initializer to run after resolution, in
// registration order.
func (s *Session) OnPostInit(fn func() error) { s.postInit = append(s.postInit, fn) }

func (s *Session) RunPostInit() error {
	if !s.resolved {
		return fmt.Errorf("post init: references not resolved yet")
	}
	if s.ranInit {
		return fmt.Errorf("post init: already ran for this session")
	}
	s.ranInit = true
	for _, fn := range s.postInit {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) Finalize() { s.finalized = true }

func (s *Session) Finalized() bool { return s.finalized }

// FieldWriter collects named fields for one component sub-record.
type FieldWriter struct {
	fields map[string]json.RawMessage
}

func NewFieldWriter() *FieldWriter {
	return &FieldWriter{fields: map[string]json.RawMessage{}}
}

func (w *FieldWriter) WriteField(name string, v any) error {
	if name == "" {
		return fmt.Errorf("write field: empty name")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("write field %s: %w", name, err)
	}
	w.fields[name] = b
	return nil
}

func (w *FieldWriter) Fields() map[string]json.RawMessage { return w.fields }

// FieldReader reads named fields back. Absent fields report ok=false and
// leave the target untouched, so components keep their defaults.
type FieldReader struct {
	fields map[string]json.RawMessage
}

func NewFieldReader(fields map[string]json.RawMessage) *FieldReader {
	return &FieldReader{fields: fields}
}

func (r *FieldReader) ReadField(name string, out any) (bool, error) {
	if r == nil || r.fields == nil {
		return false, nil
	}
	raw, ok := r.fields[name]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("read field %s: %w", name, err)
	}
	return true, nil
}
