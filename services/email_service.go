package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/KidRide/kidride-backend/config"
	"github.com/KidRide/kidride-backend/logger"
	"github.com/KidRide/kidride-backend/pkg/valueobjects"
	"github.com/KidRide/kidride-backend/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/resend/resend-go/v2"
)

type EmailMetrics struct {
	sendLatency prometheus.Histogram
	errorCount  prometheus.Counter
	sentCount   prometheus.Counter
}

// emailSender is the part of the resend client the service uses.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailService sends admin alerts through Resend.
type EmailService struct {
	config   *config.EmailConfig
	sender   emailSender
	currency string
	metrics  *EmailMetrics
}

func NewEmailService(cfg *config.EmailConfig, currency string) *EmailService {
	return NewEmailServiceWithRegistry(cfg, currency, prometheus.DefaultRegisterer)
}

func NewEmailServiceWithRegistry(cfg *config.EmailConfig, currency string, reg prometheus.Registerer) *EmailService {
	logger.GetLogger().Infow("Initializing email service",
		"from", logger.MaskEmail(cfg.FromAddress), "admin", logger.MaskEmail(cfg.AdminAddress))
	client := resend.NewClient(cfg.ResendAPIKey)
	metrics := &EmailMetrics{
		sendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kidride_email_send_duration_seconds",
			Help:    "Time taken to send emails",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kidride_email_errors_total",
			Help: "Total number of email sending errors",
		}),
		sentCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kidride_emails_sent_total",
			Help: "Total number of emails sent",
		}),
	}

	reg.MustRegister(metrics.sendLatency)
	reg.MustRegister(metrics.errorCount)
	reg.MustRegister(metrics.sentCount)

	return &EmailService{
		config:   cfg,
		sender:   client.Emails,
		currency: currency,
		metrics:  metrics,
	}
}

type failedPayoutRow struct {
	DriverID string
	Amount   string
	Error    string
}

// SendPayoutFailureAlert tells the admin inbox which transfers in a batch
// were rejected. It is a no-op when the batch has no failures or no admin
// address is configured.
func (s *EmailService) SendPayoutFailureAlert(ctx context.Context, batch *types.PayoutBatch) error {
	log := logger.GetLogger()
	failed := batch.FailedTransactions()
	if len(failed) == 0 {
		return nil
	}
	if s.config.AdminAddress == "" {
		log.Warnw("Payout batch has failed transfers but no admin address is configured",
			"batchId", batch.ID, "failed", len(failed))
		return nil
	}

	startTime := time.Now()
	defer func() {
		s.metrics.sendLatency.Observe(time.Since(startTime).Seconds())
	}()

	rows := make([]failedPayoutRow, 0, len(failed))
	for _, tx := range failed {
		rows = append(rows, failedPayoutRow{
			DriverID: tx.DriverID,
			Amount:   s.formatAmount(tx.Amount),
			Error:    tx.ErrorMessage,
		})
	}

	tmpl, err := template.New("payout_failure").Parse(payoutFailureTemplate)
	if err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var htmlContent bytes.Buffer
	if err := tmpl.Execute(&htmlContent, map[string]interface{}{
		"BatchID":   batch.ID,
		"Trigger":   string(batch.Trigger),
		"CreatedAt": batch.CreatedAt.UTC().Format(time.RFC1123),
		"Rows":      rows,
		"Paid":      s.formatAmount(batch.TotalAmount),
	}); err != nil {
		s.metrics.errorCount.Inc()
		return fmt.Errorf("failed to execute template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress),
		To:      []string{s.config.AdminAddress},
		Subject: fmt.Sprintf("Payout batch %s: %d transfer(s) failed", batch.ID, len(failed)),
		Html:    htmlContent.String(),
	}

	if _, err := s.sender.SendWithContext(ctx, params); err != nil {
		s.metrics.errorCount.Inc()
		log.Errorw("Failed to send payout failure alert",
			"error", err,
			"batchId", batch.ID,
			"to", logger.MaskEmail(s.config.AdminAddress))
		return fmt.Errorf("email send failed: %w", err)
	}

	s.metrics.sentCount.Inc()
	log.Infow("Payout failure alert sent", "batchId", batch.ID, "failed", len(failed))
	return nil
}

func (s *EmailService) formatAmount(minor int64) string {
	m, err := valueobjects.NewMoney(minor, valueobjects.Currency(s.currency))
	if err != nil {
		return fmt.Sprintf("%d", minor)
	}
	return m.String()
}

const payoutFailureTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Payout transfers failed</title>
    <style>
        body { font-family: sans-serif; color: #333333; padding: 20px; }
        table { border-collapse: collapse; }
        th, td { border: 1px solid #dddddd; padding: 6px 12px; text-align: left; }
        th { background-color: #f4f4f4; }
    </style>
</head>
<body>
    <h2>Payout batch {{.BatchID}}</h2>
    <p>Trigger: {{.Trigger}} &middot; Created: {{.CreatedAt}} &middot; Paid out: {{.Paid}}</p>
    <p>The following transfers were rejected. The drivers' balances stay pending and will be retried in the next payout run.</p>
    <table>
        <tr><th>Driver</th><th>Amount</th><th>Error</th></tr>
        {{range .Rows}}<tr><td>{{.DriverID}}</td><td>{{.Amount}}</td><td>{{.Error}}</td></tr>
        {{end}}
    </table>
</body>
</html>`
