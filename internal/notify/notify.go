package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("showtimes.notify")

type SmtpConfig struct {
	Server       string   `json:"server"`
	Port         int      `json:"port"`
	EmailAddress string   `json:"email_address"`
	Password     string   `json:"password"`
	Recipients   []string `json:"recipients"`
}

// Enabled reports whether enough is configured to send mail.
func (c SmtpConfig) Enabled() bool {
	return c.Server != "" && c.EmailAddress != "" && len(c.Recipients) > 0
}

// Mailer tells the operator about scheduled runs that failed.
type Mailer struct {
	config SmtpConfig
}

func NewMailer(config SmtpConfig) Mailer {
	return Mailer{config: config}
}

func (m Mailer) failureMail(at time.Time, cities []string, runErr error) *email.Email {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Showtimes <%s>", m.config.EmailAddress)
	mail.To = m.config.Recipients
	mail.Subject = fmt.Sprintf("Showtimes scrape failed (%s)", at.Format("2006-01-02 15:04"))

	body := fmt.Sprintf(`The scheduled showtimes scrape for %s failed at %s, the previous output was left untouched.

%s`, strings.Join(cities, ", "), at.Format(time.RFC1123), runErr.Error())
	mail.Text = []byte(body)
	return mail
}

// NotifyFailure mails the error of a failed run to every recipient.
func (m Mailer) NotifyFailure(ctx context.Context, at time.Time, cities []string, runErr error) error {
	_, span := tracer.Start(ctx, "NotifyFailure")
	defer span.End()

	mail := m.failureMail(at, cities, runErr)
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)

	err := mail.Send(addr, smtp.PlainAuth("", m.config.EmailAddress, m.config.Password, m.config.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
