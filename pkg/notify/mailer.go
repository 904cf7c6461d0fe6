package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends plain-text mail over SMTP with STARTTLS.
type Mailer struct {
	host     string
	port     string
	sender   string
	password string
}

func NewMailer(host, port, sender, password string) *Mailer {
	return &Mailer{host: host, port: port, sender: sender, password: password}
}

func (m *Mailer) Send(subject, body, recipient string) error {
	if m.sender == "" {
		return fmt.Errorf("smtp sender not configured")
	}
	message := strings.Join([]string{
		fmt.Sprintf("From: %s", m.sender),
		fmt.Sprintf("To: %s", recipient),
		fmt.Sprintf("Subject: %s", subject),
		"",
		body,
	}, "\r\n")

	auth := smtp.PlainAuth("", m.sender, m.password, m.host)
	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	return smtp.SendMail(addr, auth, m.sender, []string{recipient}, []byte(message))
}
