package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/model"
)

// ErrMailDisabled is returned by Mailer.SendConfirmation when SMTP
// delivery is switched off.
var ErrMailDisabled = errors.New("mail is disabled")

// SendError wraps an SMTP failure.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return fmt.Sprintf("smtp send failed: %v", e.Err) }
func (e *SendError) Unwrap() error { return e.Err }

// Mailer sends reservation confirmations over SMTP.
type Mailer struct {
	cfg  config.MailConfig
	loc  *time.Location
	send func(*gomail.Message) error
}

// NewMailer returns a Mailer for cfg. Times in messages are rendered in
// loc.
func NewMailer(cfg config.MailConfig, loc *time.Location) *Mailer {
	m := &Mailer{cfg: cfg, loc: loc}
	m.send = func(msg *gomail.Message) error { return m.dialer().DialAndSend(msg) }
	return m
}

func (m *Mailer) dialer() *gomail.Dialer {
	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	d.SSL = m.cfg.UseTLS
	if m.cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: m.cfg.Host}
	}
	return d
}

// SendConfirmation e-mails the booking details to the reservation's
// client. The reservation must carry its Client and Table.
func (m *Mailer) SendConfirmation(ctx context.Context, res *model.Reservation) error {
	if !m.cfg.Enabled {
		return ErrMailDisabled
	}
	msg, err := m.buildConfirmation(res)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- m.send(msg) }()

	wait := m.cfg.Timeout
	if wait <= 0 {
		wait = 30 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return &SendError{Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

type confirmationData struct {
	Name        string
	TableNumber int
	PartySize   int
	When        string
	Points      int
}

var confirmationHTML = template.Must(template.New("confirmation").Parse(
	`<h2>Hello {{.Name}}!</h2>
<p>Your reservation is <strong>confirmed</strong>.</p>
<p>You earned <strong>{{.Points}} loyalty points</strong>.</p>
<hr>
<h3>Details</h3>
<ul>
<li><strong>Table:</strong> #{{.TableNumber}}</li>
<li><strong>Guests:</strong> {{.PartySize}}</li>
<li><strong>Date:</strong> {{.When}}</li>
</ul>
<p>We look forward to seeing you!</p>`))

const confirmationText = `Hello %s!

Your reservation is confirmed. You earned %d loyalty points.

Table: #%d
Guests: %d
Date: %s

We look forward to seeing you!
`

func (m *Mailer) buildConfirmation(res *model.Reservation) (*gomail.Message, error) {
	if res.Client == nil || res.Table == nil {
		return nil, errors.New("reservation without client or table")
	}
	if !res.Client.HasEmail() {
		return nil, errors.New("client has no email")
	}
	from := strings.TrimSpace(m.cfg.From)
	if from == "" {
		return nil, errors.New("mail sender is not configured")
	}

	loc := m.loc
	if loc == nil {
		loc = time.UTC
	}
	data := confirmationData{
		Name:        res.Client.Name,
		TableNumber: res.Table.TableNumber,
		PartySize:   res.PartySize,
		When:        res.StartTime.In(loc).Format("Mon 02 Jan 2006 15:04"),
		Points:      res.PointsEarned,
	}
	var html strings.Builder
	if err := confirmationHTML.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("render confirmation: %w", err)
	}
	text := fmt.Sprintf(confirmationText, data.Name, data.Points, data.TableNumber, data.PartySize, data.When)

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", *res.Client.Email)
	msg.SetHeader("Subject", "Your reservation is confirmed")
	msg.SetBody("text/plain", text)
	msg.AddAlternative("text/html", html.String())
	return msg, nil
}
