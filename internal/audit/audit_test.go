package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type blockingSink struct {
	gate chan struct{}
}

func (s *blockingSink) Emit(context.Context, Event) { <-s.gate }

func receive(t *testing.T, sink *ChannelSink) Event {
	t.Helper()
	select {
	case e := <-sink.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(8)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8}, sink)

	want := []Kind{KindSessionInitialized, KindGuardRedirect, KindSessionLogin}
	for _, k := range want {
		if !d.Emit(Event{Kind: k}) {
			t.Fatalf("Emit(%s) not queued", k)
		}
	}
	d.Close()

	for _, k := range want {
		if got := receive(t, sink); got.Kind != k {
			t.Fatalf("got %s, want %s", got.Kind, k)
		}
	}
	if d.Delivered() != 3 {
		t.Fatalf("delivered = %d", d.Delivered())
	}
}

func TestDispatcherStampsTimestamp(t *testing.T) {
	sink := NewChannelSink(2)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 2}, sink)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	d.Emit(Event{Kind: KindSessionLogout})
	d.Emit(Event{Kind: KindSessionLogin, Timestamp: fixed})
	d.Close()

	if e := receive(t, sink); e.Timestamp.IsZero() || e.Timestamp.Location() != time.UTC {
		t.Fatalf("stamped timestamp = %v", e.Timestamp)
	}
	if e := receive(t, sink); !e.Timestamp.Equal(fixed) {
		t.Fatalf("caller timestamp overwritten: %v", e.Timestamp)
	}
}

func TestDispatcherKindFilter(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, Kinds: []Kind{KindSessionLogin, KindSessionLogout}}, sink)

	if d.Records(KindGuardRedirect) || !d.Records(KindSessionLogin) {
		t.Fatal("filter not applied")
	}
	if d.Emit(Event{Kind: KindGuardRedirect}) {
		t.Fatal("filtered kind was queued")
	}
	d.Emit(Event{Kind: KindSessionLogout})
	d.Close()

	if e := receive(t, sink); e.Kind != KindSessionLogout {
		t.Fatalf("got %s", e.Kind)
	}
	if d.Dropped() != 0 {
		t.Fatal("filtered events must not count as dropped")
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := &blockingSink{gate: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(Event{Kind: KindGuardRedirect})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped events")
	}
	close(sink.gate)
	d.Close()
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher")
	}
	if d.Emit(Event{Kind: KindSessionLogin}) || d.Records(KindSessionLogin) {
		t.Fatal("nil dispatcher accepted an event")
	}
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero counts")
	}
}

func TestEmitAfterCloseIsIgnored(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()
	if d.Emit(Event{Kind: KindSessionLogout}) {
		t.Fatal("Emit after Close reported queued")
	}
	select {
	case e := <-sink.Events():
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestKindComponent(t *testing.T) {
	if KindGuardRedirect.Component() != "guard" || KindFormSubmit.Component() != "form" {
		t.Fatal("component prefix")
	}
	if Kind("bare").Component() != "bare" {
		t.Fatal("kind without dot")
	}
	if !KindSessionLogin.Known() || Kind("session.refresh").Known() {
		t.Fatal("Known")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	NewJSONWriterSink(&buf).Emit(context.Background(), Event{Kind: KindSessionLogin, Success: true, Target: "/"})

	var decoded map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["event_type"] != "session.login" || decoded["target"] != "/" {
		t.Fatalf("decoded: %v", decoded)
	}
}

func TestLogSink(t *testing.T) {
	log, hook := test.NewNullLogger()
	NewLogSink(log).Emit(context.Background(), Event{
		Kind:     KindGuardRedirect,
		Path:     "/settings",
		Target:   "/login",
		Success:  true,
		Metadata: map[string]string{"reason": "unauthenticated"},
	})

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel {
		t.Fatalf("entry: %+v", entry)
	}
	if entry.Data["event"] != "guard.redirect" || entry.Data["component"] != "guard" ||
		entry.Data["target"] != "/login" || entry.Data["meta.reason"] != "unauthenticated" {
		t.Fatalf("fields: %v", entry.Data)
	}
}
