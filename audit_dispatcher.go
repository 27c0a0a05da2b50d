package sessiongate

import (
	"github.com/deeptutor/sessiongate/form"
	"github.com/deeptutor/sessiongate/session"
)

// emitAudit queues one event. It never blocks past the dispatcher's buffer
// policy.
func (g *Gate) emitAudit(e AuditEvent) {
	g.audit.Emit(e)
}

func (g *Gate) onSessionEvent(e session.Event) {
	ev := AuditEvent{Success: e.Err == nil}
	if e.Err != nil {
		ev.Error = e.Err.Error()
		g.metrics.Inc(MetricStorageFailure)
	}

	switch e.Kind {
	case session.EventInitialized:
		g.metrics.Inc(MetricSessionInitialized)
		ev.Kind = AuditSessionInitialized
		ev.Metadata = map[string]string{"token_found": boolString(e.Found)}
	case session.EventLogin:
		if e.Err == nil {
			g.metrics.Inc(MetricLogin)
		}
		ev.Kind = AuditSessionLogin
		ev.Target = g.cfg.Paths.Home
	case session.EventLogout:
		g.metrics.Inc(MetricLogout)
		ev.Kind = AuditSessionLogout
		ev.Target = g.cfg.Paths.Login
	default:
		return
	}

	entry := g.log.WithField("event", string(e.Kind))
	if e.Err != nil {
		entry.WithError(e.Err).Warn("session storage failed")
	} else {
		entry.Debug("session changed")
	}
	g.emitAudit(ev)
}

func (g *Gate) onRedirect(from, to string) {
	g.metrics.Inc(MetricRedirect)
	g.emitAudit(AuditEvent{Kind: AuditGuardRedirect, Path: from, Target: to, Success: true})
}

func (g *Gate) onSubmit(e form.SubmitEvent) {
	switch e.Outcome {
	case form.OutcomeSignedIn:
		g.metrics.Inc(MetricSignInSuccess)
	case form.OutcomeRegistered:
		g.metrics.Inc(MetricRegisterSuccess)
	case form.OutcomeIgnored, form.OutcomeInvalid:
		g.metrics.Inc(MetricSubmitRejected)
		return
	case form.OutcomeFailed:
		if e.Mode == form.ModeRegister {
			g.metrics.Inc(MetricRegisterFailure)
		} else {
			g.metrics.Inc(MetricSignInFailure)
		}
	}
	g.metrics.Observe(MetricExchangeLatency, e.Elapsed)

	ev := AuditEvent{
		Kind:     AuditFormSubmit,
		Success:  e.Err == nil,
		Metadata: map[string]string{"mode": e.Mode.String(), "outcome": e.Outcome.String()},
	}
	if e.Err != nil {
		ev.Error = e.Err.Error()
	}
	g.emitAudit(ev)
}

// AuditDropped returns the number of audit events dropped under backpressure.
func (g *Gate) AuditDropped() uint64 {
	return g.audit.Dropped()
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
