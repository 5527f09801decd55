package mailer

import (
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Mailer sends transactional email over SMTP.
type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
	log    zerolog.Logger
}

// New creates a mailer with the given SMTP settings.
func New(cfg Config, log zerolog.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		log:    log.With().Str("component", "mailer").Logger(),
	}
}

// Send delivers a single HTML email with a plain-text alternative.
func (m *Mailer) Send(to, subject, htmlBody, textBody string) error {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.From, m.cfg.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	msg.AddAlternative("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	m.log.Debug().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

// SendWelcome sends the signup welcome email.
func (m *Mailer) SendWelcome(to, name, intro string) error {
	html := RenderWelcome(name, intro)
	text := fmt.Sprintf("Hi %s,\n\n%s\n\nThe Signalist Team", name, intro)

	return m.Send(to, WelcomeSubject, html, text)
}

// SendNewsSummary sends the daily digest email. newsContent is an
// HTML fragment produced by the summarizer.
func (m *Mailer) SendNewsSummary(to, date, newsContent string) error {
	html := RenderNewsSummary(date, newsContent)
	subject := fmt.Sprintf("%s %s", NewsSubjectPrefix, date)

	return m.Send(to, subject, html, "Today's market news summary from Signalist.")
}
