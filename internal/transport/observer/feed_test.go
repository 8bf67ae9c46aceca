package observer

import (
	"encoding/json"
	"testing"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/protocol"
)

func TestFeed_DeliversAndReplaysBacklog(t *testing.T) {
	f := NewFeed()

	f.Publish(protocol.OpEvent{Type: protocol.EventRegionSaved, RegionID: "r1", Tick: 10})

	ch, backlog, unsub := f.Subscribe()
	defer unsub()

	if len(backlog) != 1 {
		t.Fatalf("backlog = %d, want 1", len(backlog))
	}
	var ev protocol.OpEvent
	if err := json.Unmarshal(backlog[0], &ev); err != nil {
		t.Fatalf("unmarshal backlog: %v", err)
	}
	if ev.Type != protocol.EventRegionSaved || ev.RegionID != "r1" {
		t.Fatalf("backlog event = %+v", ev)
	}

	f.Publish(protocol.OpEvent{Type: protocol.EventRegionLoaded, RegionID: "r1", Tick: 99})
	select {
	case b := <-ch:
		if err := json.Unmarshal(b, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != protocol.EventRegionLoaded {
			t.Fatalf("event = %+v", ev)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	f := NewFeed()
	_, _, unsub := f.Subscribe()
	defer unsub()

	for i := 0; i < 1000; i++ {
		f.Publish(protocol.OpEvent{Type: protocol.EventDecay, RegionID: "r1", Tick: uint64(i)})
	}
	if len(f.recent) != feedBacklog {
		t.Fatalf("recent = %d, want %d", len(f.recent), feedBacklog)
	}
}
