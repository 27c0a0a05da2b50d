package audit

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Kind names what happened. The part before the dot is the emitting
// component.
type Kind string

const (
	KindSessionInitialized Kind = "session.initialized"
	KindSessionLogin       Kind = "session.login"
	KindSessionLogout      Kind = "session.logout"
	KindGuardRedirect      Kind = "guard.redirect"
	KindFormSubmit         Kind = "form.submit"
)

// Kinds lists every known kind.
func Kinds() []Kind {
	return []Kind{KindSessionInitialized, KindSessionLogin, KindSessionLogout, KindGuardRedirect, KindFormSubmit}
}

// Component returns the emitting component, e.g. "session".
func (k Kind) Component() string {
	if i := strings.IndexByte(string(k), '.'); i > 0 {
		return string(k[:i])
	}
	return string(k)
}

// Known reports whether k is one of Kinds.
func (k Kind) Known() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

// Event is one audit record.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"event_type"`
	Path      string            `json:"path,omitempty"`
	Target    string            `json:"target,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink buffers events for a consumer.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.writer.Write(append(data, '\n'))
}

// LogSink writes each event as a structured log entry at info level.
type LogSink struct {
	log logrus.FieldLogger
}

func NewLogSink(log logrus.FieldLogger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(_ context.Context, event Event) {
	if s == nil || s.log == nil {
		return
	}
	fields := logrus.Fields{
		"event":     string(event.Kind),
		"component": event.Kind.Component(),
		"success":   event.Success,
	}
	if event.Path != "" {
		fields["path"] = event.Path
	}
	if event.Target != "" {
		fields["target"] = event.Target
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	for k, v := range event.Metadata {
		fields["meta."+k] = v
	}
	s.log.WithFields(fields).Info("audit")
}
