package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// SessionEvent is a session lifecycle transition worth exporting: login,
// logout, refresh, expiry.
type SessionEvent struct {
	Type     string
	Username string
	Role     string
	At       time.Time
}

// SessionEventEmitter exports session lifecycle events.
type SessionEventEmitter interface {
	Emit(ctx context.Context, event SessionEvent)
}

// NewSessionEventEmitter returns an emitter that sends session events as
// OTel log records via the given LoggerProvider. A nil provider yields a
// no-op emitter.
func NewSessionEventEmitter(provider *sdklog.LoggerProvider) SessionEventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &logEmitter{logger: provider.Logger("planta.session")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, SessionEvent) {}

type logEmitter struct {
	logger otellog.Logger
}

// Emit converts the event to an OTel log record and emits it. Best-effort.
func (e *logEmitter) Emit(ctx context.Context, event SessionEvent) {
	rec := otellog.Record{}
	at := event.At
	if at.IsZero() {
		at = time.Now()
	}
	rec.SetTimestamp(at)
	rec.SetBody(otellog.StringValue(event.Type))
	rec.AddAttributes(otellog.String("event_type", event.Type))
	if event.Username != "" {
		rec.AddAttributes(otellog.String("username", event.Username))
	}
	if event.Role != "" {
		rec.AddAttributes(otellog.String("role", event.Role))
	}
	e.logger.Emit(ctx, rec)
}
