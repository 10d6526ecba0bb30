package services

import (
	"context"
	"fmt"

	"github.com/resendlabs/resend-go"
	"go.uber.org/zap"
)

// EmailSender delivers transactional mail. The only producer today is the
// password reset flow.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, htmlContent string) error
}

type ResendMailer struct {
	client *resend.Client
	from   string
	log    *zap.Logger
}

func NewResendMailer(apiKey, from string, log *zap.Logger) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
		log:    log,
	}
}

func (m *ResendMailer) SendEmail(_ context.Context, to, subject, htmlContent string) error {
	_, err := m.client.Emails.Send(&resend.SendEmailRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Html:    htmlContent,
	})
	if err != nil {
		m.log.Error("failed to send email", zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer is used when no RESEND_API_KEY is configured. It logs that a
// mail would have been sent without the body, so reset links never land
// in log storage.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer { return &LogMailer{log: log} }

func (m *LogMailer) SendEmail(_ context.Context, to, subject, _ string) error {
	m.log.Info("mail delivery skipped, no api key configured",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
