package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
)

// Mailer delivers outbound mail. The default implementation only logs, so
// environments without a provider keep working.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

type logMailer struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

// NewLogMailer returns a mailer that records deliveries in the log.
func NewLogMailer(cfg config.MailConfig, logger *zap.Logger) Mailer {
	return &logMailer{cfg: cfg, logger: logger}
}

func (m *logMailer) Send(_ context.Context, to, subject, body string) error {
	if !m.cfg.Enabled {
		m.logger.Debug("mail disabled, dropping message", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	m.logger.Info("mail sent",
		zap.String("from", m.cfg.From),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
