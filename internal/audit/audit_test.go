package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(10)
	d := NewDispatcher(sink, 10, false)

	for i := 0; i < 3; i++ {
		d.Emit(context.Background(), Event{EventType: EventGateArmed, UserID: "u1"})
	}
	d.Close()

	for i := 0; i < 3; i++ {
		select {
		case ev := <-sink.Events():
			if ev.EventType != EventGateArmed {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := blockingSink{block: block}
	d := NewDispatcher(sink, 1, true)
	defer d.Close()
	defer close(block)

	// First event occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: EventFlowStarted})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events")
	}
}

type blockingSink struct {
	block chan struct{}
}

func (s blockingSink) Emit(context.Context, Event) {
	<-s.block
}

func TestEmitAfterCloseIsNoOp(t *testing.T) {
	d := NewDispatcher(NoOpSink{}, 1, false)
	d.Close()
	d.Emit(context.Background(), Event{EventType: EventGateCancelled})
}

func TestNilDispatcher(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), Event{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher should report zero drops")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		EventType: EventOperationResult,
		UserID:    "u1",
		Operation: "send_funds",
		Success:   true,
	})

	line := strings.TrimSpace(buf.String())
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("invalid JSON line %q: %v", line, err)
	}
	if ev.UserID != "u1" || !ev.Success || ev.Operation != "send_funds" {
		t.Fatalf("round trip mismatch: %+v", ev)
	}
}
