package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/staffdesk/internal/config"
	"github.com/spec-kit/staffdesk/internal/events"
	"github.com/spec-kit/staffdesk/internal/persistence"
)

// AuditService records auth events onto a capped Redis stream so
// security staff can review login failures and lock transitions.
// Redis being down degrades to log-only; auth flows never fail on a
// missed audit write.
type AuditService struct {
	dispatcher events.Dispatcher
	redis      *persistence.Redis
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, redis *persistence.Redis, logger *zap.Logger, cfg config.AuditConfig) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		redis:      redis,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to every auth event type.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventLoginSucceeded,
		events.EventLoginFailed,
		events.EventAccountLocked,
		events.EventPasswordChanged,
		events.EventPasswordResetRequested,
		events.EventPasswordResetCompleted,
	} {
		a.dispatcher.Subscribe(eventType, a.record)
	}
}

func (a *AuditService) record(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("credential_id", event.CredentialID),
	}
	a.logger.Info("auth event", fields...)

	if a.redis == nil {
		return nil
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		a.logger.Warn("audit payload marshal failed", zap.Error(err))
		payload = []byte("{}")
	}
	if err := a.redis.Append(ctx, a.cfg.StreamName, a.cfg.MaxLen, map[string]interface{}{
		"id":            event.ID,
		"type":          string(event.Type),
		"credential_id": event.CredentialID,
		"timestamp":     event.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"payload":       string(payload),
	}); err != nil {
		a.logger.Warn("audit stream append failed", zap.Error(err))
	}
	return nil
}
