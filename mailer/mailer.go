package mailer

import (
	"io"
	"path/filepath"

	"github.com/samber/oops"
	mail "github.com/wneessen/go-mail"
)

// via https://go-mail.dev/getting-started/introduction/

type Mailer struct {
	Host     string
	Port     int
	SSL      bool
	Username string
	Password string
	From     string
	Debug    bool
}

// NewMessage builds the mail carrying the report as attachment.
func (m *Mailer) NewMessage(to []string, subject string, name string, attachment io.ReadSeeker) (*mail.Msg, error) {
	oopsBuilder := oops.In("Mailer::NewMessage").With("to", to)
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	if err := msg.To(to...); err != nil {
		return nil, oopsBuilder.Wrap(err)
	}
	msg.Subject(subject)
	msg.SetDate()
	if attachment != nil {
		msg.AttachReadSeeker(filepath.Base(name), attachment)
	}
	msg.SetBodyString("text/plain", "The report \""+subject+"\" is attached.")
	return msg, nil
}

// Send mails the report to every recipient.
func (m *Mailer) Send(to []string, subject string, name string, attachment io.ReadSeeker) error {
	oopsBuilder := oops.In("Mailer::Send").With("host", m.Host)
	msg, err := m.NewMessage(to, subject, name, attachment)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}

	opts := []mail.Option{mail.WithPort(m.Port)}
	if m.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.Username != "" {
		opts = append(opts,
			mail.WithUsername(m.Username),
			mail.WithPassword(m.Password),
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
		)
	}
	if m.Debug {
		opts = append(opts, mail.WithDebugLog())
	}

	client, err := mail.NewClient(m.Host, opts...)
	if err != nil {
		return oopsBuilder.Wrap(err)
	}
	defer client.Close()

	if err := client.DialAndSend(msg); err != nil {
		return oopsBuilder.Wrap(err)
	}
	return nil
}
