package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wichananm65/fullstack-starter/internal/retry"
)

// Message is a single outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

//go:embed templates/*.html
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// WelcomeData feeds the welcome template.
type WelcomeData struct {
	AppName  string
	Name     string
	Email    string
	LoginURL string
}

// Welcome renders the welcome email for a newly registered user.
func Welcome(data WelcomeData) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "welcome.html", data); err != nil {
		return Message{}, fmt.Errorf("render welcome email: %w", err)
	}
	return Message{
		To:      data.Email,
		Subject: "Welcome to " + data.AppName,
		HTML:    buf.String(),
		Text:    fmt.Sprintf("Welcome, %s! Your %s account for %s is ready.", data.Name, data.AppName, data.Email),
	}, nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log logrus.FieldLogger
}

func NewLogMailer(log logrus.FieldLogger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.log.WithFields(logrus.Fields{"to": msg.To, "subject": msg.Subject}).Info("email not sent (log mailer)")
	return nil
}

// Retrying retries a Mailer a fixed number of times with a constant delay.
type Retrying struct {
	Mailer   Mailer
	Attempts int
	Delay    time.Duration
}

func (r Retrying) Send(ctx context.Context, msg Message) error {
	return retry.Do(ctx, r.Attempts, r.Delay, func(ctx context.Context) error {
		return r.Mailer.Send(ctx, msg)
	})
}
