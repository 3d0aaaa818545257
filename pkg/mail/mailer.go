package mail

import (
	"errors"
	"fmt"
	"html"
	"strings"

	gomail "gopkg.in/gomail.v2"
)

// BookRequestNotice is sent to the site admin when a visitor asks for a book
// that is not in the catalog yet.
type BookRequestNotice struct {
	UserEmail  string
	BookName   string
	AuthorName string
	Category   string
	Message    string
}

// NewBookNotice announces a freshly uploaded book to opted-in readers.
type NewBookNotice struct {
	Title      string
	AuthorName string
	Genre      string
}

// Mailer delivers notification emails. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendBookRequestNotice(notice BookRequestNotice) error
	SendNewBookNotice(recipient string, notice NewBookNotice) error
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
}

// SMTPMailer sends mail through an SMTP relay using gomail.
type SMTPMailer struct {
	dialer     *gomail.Dialer
	from       string
	adminEmail string
}

// NewSMTPMailer validates the config and builds a mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp from address required")
	}
	if strings.TrimSpace(cfg.AdminEmail) == "" {
		return nil, errors.New("admin email required")
	}
	return &SMTPMailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:       cfg.From,
		adminEmail: cfg.AdminEmail,
	}, nil
}

func (m *SMTPMailer) SendBookRequestNotice(notice BookRequestNotice) error {
	message := notice.Message
	if strings.TrimSpace(message) == "" {
		message = "N/A"
	}
	body := fmt.Sprintf(`<h2>New Book Request</h2>
<p><b>User Email:</b> %s</p>
<p><b>Book Name:</b> %s</p>
<p><b>Author:</b> %s</p>
<p><b>Category:</b> %s</p>
<p><b>Message:</b> %s</p>
<hr />
<p>Bookify Website</p>`,
		html.EscapeString(notice.UserEmail),
		html.EscapeString(notice.BookName),
		html.EscapeString(notice.AuthorName),
		html.EscapeString(notice.Category),
		html.EscapeString(message),
	)

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, "Bookify Request")
	msg.SetHeader("To", m.adminEmail)
	msg.SetHeader("Subject", "New Book Request Received")
	msg.SetBody("text/html", body)
	return m.dialer.DialAndSend(msg)
}

func (m *SMTPMailer) SendNewBookNotice(recipient string, notice NewBookNotice) error {
	if strings.TrimSpace(recipient) == "" {
		recipient = m.adminEmail
	}
	body := fmt.Sprintf(`<h2>New Book Added!</h2>
<p><b>Title:</b> %s</p>
<p><b>Author:</b> %s</p>
<p><b>Category:</b> %s</p>
<hr />
<p>Visit Bookify to read now</p>`,
		html.EscapeString(notice.Title),
		html.EscapeString(notice.AuthorName),
		html.EscapeString(notice.Genre),
	)

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, "Bookify Updates")
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", "New Book Added on Bookify")
	msg.SetBody("text/html", body)
	return m.dialer.DialAndSend(msg)
}
