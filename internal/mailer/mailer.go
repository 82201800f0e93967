// Package mailer delivers finished tax reports by email.
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/rs/zerolog"

	"taxreport/internal/config"
	"taxreport/internal/logger"
	"taxreport/internal/taxreport"
)

// Delivery is one outgoing message.
type Delivery struct {
	Subject     string
	Text        string
	Attachments []taxreport.Artifact
}

// Sender sends a delivery to the configured recipients.
type Sender interface {
	Send(ctx context.Context, d Delivery) error
}

// New selects the sender for the configuration. Mail disabled or an
// incomplete Mailgun setup falls back to logging the delivery.
func New(cfg *config.Config) Sender {
	log := logger.WithComponent("mailer")

	if !cfg.MailEnabled {
		log.Debug().Msg("Mail disabled, deliveries are only logged")
		return NewLogSender()
	}
	if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailFrom == "" || len(cfg.MailTo) == 0 {
		log.Warn().Msg("Mailgun configuration incomplete (domain, API key, sender or recipients missing). Falling back to log delivery")
		return NewLogSender()
	}

	mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey)
	if cfg.MailgunAPIBase != "" {
		mg.SetAPIBase(cfg.MailgunAPIBase)
	}
	log.Info().Str("domain", cfg.MailgunDomain).Msg("Mailgun client initialized")
	return NewMailgunSender(mg, cfg.MailFrom, cfg.MailTo)
}

// MailgunSender sends deliveries through the Mailgun API.
type MailgunSender struct {
	mg      mailgun.Mailgun
	from    string
	to      []string
	timeout time.Duration
	log     zerolog.Logger
}

// NewMailgunSender creates a sender that mails from the given address to all
// recipients in to. Each send is bounded by a 30 second timeout.
func NewMailgunSender(mg mailgun.Mailgun, from string, to []string) *MailgunSender {
	return &MailgunSender{
		mg:      mg,
		from:    from,
		to:      to,
		timeout: 30 * time.Second,
		log:     logger.WithComponent("mailer"),
	}
}

// Send mails the delivery with its attachments in a single message.
func (s *MailgunSender) Send(ctx context.Context, d Delivery) error {
	const op = "MailgunSender.Send"

	message := s.mg.NewMessage(s.from, d.Subject, d.Text, s.to...)
	for _, a := range d.Attachments {
		message.AddBufferAttachment(a.Name, a.Data)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		s.log.Error().Err(err).Strs("to", s.to).Str("mailgun_response", resp).Msg("Failed to send report via Mailgun")
		return fmt.Errorf("%s: mailgun send failed: %w", op, err)
	}

	s.log.Info().
		Strs("to", s.to).
		Str("id", id).
		Int("attachments", len(d.Attachments)).
		Msg("Report sent via Mailgun")
	return nil
}

// LogSender only logs deliveries.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender creates a sender that only logs deliveries.
func NewLogSender() *LogSender {
	return &LogSender{log: logger.WithComponent("mailer")}
}

// Send logs the subject and attachment names. It never fails.
func (s *LogSender) Send(_ context.Context, d Delivery) error {
	names := make([]string, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		names = append(names, a.Name)
	}
	s.log.Info().
		Str("subject", d.Subject).
		Strs("attachments", names).
		Msg("Mail delivery skipped, report not sent")
	return nil
}

// ReportMailer composes report mails and hands them to a Sender.
type ReportMailer struct {
	sender Sender
}

// NewReportMailer creates a mailer that sends through sender.
func NewReportMailer(sender Sender) *ReportMailer {
	return &ReportMailer{sender: sender}
}

// Deliver composes the report mail and sends it with the artifacts attached.
func (m *ReportMailer) Deliver(ctx context.Context, report *taxreport.Report, artifacts []taxreport.Artifact) error {
	return m.sender.Send(ctx, Compose(report, artifacts))
}

// Compose builds the message for a report.
func Compose(report *taxreport.Report, artifacts []taxreport.Artifact) Delivery {
	payload := report.Payload
	totals := payload.Totals

	var b strings.Builder
	fmt.Fprintf(&b, "Tax report %s\n\n", report.Period.Label())
	fmt.Fprintf(&b, "Transaction volume: %s\n", totals.TransactionVolume)
	fmt.Fprintf(&b, "Fee volume: %s\n", totals.FeeVolume)
	fmt.Fprintf(&b, "Charges: %d\n", len(payload.Charges))
	if payload.Skipped > 0 {
		fmt.Fprintf(&b, "Skipped (no owner): %d\n", payload.Skipped)
	}
	if payload.HasMixedCurrency() {
		fmt.Fprintf(&b, "Warning: %d charges not settled in %s\n", len(payload.CurrencyMismatches), totals.TransactionVolume.Currency)
	}

	b.WriteString("\nNet volume by country:\n")
	for _, country := range totals.Countries() {
		fmt.Fprintf(&b, "  %-20s %12s\n", country, taxreport.FormatAmount(totals.VolumeByCountry[country]))
	}

	if len(payload.TaxNumberSummaries) > 0 {
		b.WriteString("\nNet volume per tax number:\n")
		for _, s := range payload.TaxNumberSummaries {
			fmt.Fprintf(&b, "  %-20s %-20s %12s %s\n", s.TaxNumber, s.Country, taxreport.FormatAmount(s.Amount), strings.ToUpper(s.Currency))
		}
	}

	fmt.Fprintf(&b, "\nRun %s, generated %s\n", report.RunID, report.GeneratedAt.UTC().Format(time.RFC3339))

	return Delivery{
		Subject:     fmt.Sprintf("Tax report %s", report.Period.Label()),
		Text:        b.String(),
		Attachments: artifacts,
	}
}
