package observer

import (
	"encoding/json"
	"sync"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/protocol"
)

const feedBacklog = 64

// Feed fans archive operation events out to connected observers. It keeps a
// short backlog so a freshly connected client sees recent operations. Slow
// clients lose events rather than stall the publisher.
type Feed struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan []byte
	recent [][]byte
}

func NewFeed() *Feed {
	return &Feed{subs: map[uint64]chan []byte{}}
}

// Publish implements the orchestrator's event sink.
func (f *Feed) Publish(ev protocol.OpEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.recent = append(f.recent, b)
	if len(f.recent) > feedBacklog {
		f.recent = f.recent[len(f.recent)-feedBacklog:]
	}
	for _, ch := range f.subs {
		select {
		case ch <- b:
		default:
		}
	}
}

// Subscribe registers a new observer and returns its channel, the backlog to
// replay first, and an unsubscribe func.
func (f *Feed) Subscribe() (<-chan []byte, [][]byte, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextID
	f.nextID++
	ch := make(chan []byte, 256)
	f.subs[id] = ch

	backlog := make([][]byte, len(f.recent))
	copy(backlog, f.recent)

	return ch, backlog, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.subs, id)
	}
}
