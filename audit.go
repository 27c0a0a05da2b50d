package sessiongate

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/deeptutor/sessiongate/internal/audit"
)

// Audit event kinds.
const (
	AuditSessionInitialized = audit.KindSessionInitialized
	AuditSessionLogin       = audit.KindSessionLogin
	AuditSessionLogout      = audit.KindSessionLogout
	AuditGuardRedirect      = audit.KindGuardRedirect
	AuditFormSubmit         = audit.KindFormSubmit
)

type (
	AuditKind      = audit.Kind
	AuditEvent     = audit.Event
	AuditSink      = audit.Sink
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LogSink        = audit.LogSink
)

// NewChannelSink returns a sink that buffers up to buffer events.
func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

// NewLogSink returns a sink that logs each event.
func NewLogSink(log logrus.FieldLogger) *LogSink { return audit.NewLogSink(log) }
