package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// SMTPMailer отправляет письма через SMTP с PLAIN-аутентификацией.
type SMTPMailer struct {
	host   string
	port   int
	user   string
	pass   string
	from   string
	logger *log.Entry
}

// NewSMTPMailer создаёт SMTP-мейлер.
func NewSMTPMailer(host string, port int, user, pass, from string) *SMTPMailer {
	return &SMTPMailer{
		host:   host,
		port:   port,
		user:   user,
		pass:   pass,
		from:   from,
		logger: log.WithField("component", "smtp-mailer"),
	}
}

// SendMail отправляет HTML-письмо одному получателю.
func (m *SMTPMailer) SendMail(to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("mail recipient is required")
	}

	var msg strings.Builder
	msg.WriteString("From: " + m.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg.String())); err != nil {
		m.logger.WithError(err).WithField("to", to).Error("failed to send mail")
		return fmt.Errorf("failed to send mail: %w", err)
	}

	m.logger.WithFields(log.Fields{
		"to":      to,
		"subject": subject,
	}).Info("mail sent")
	return nil
}

// LogMailer пишет письма в лог вместо отправки. Используется, когда SMTP
// не сконфигурирован (локальная разработка, тесты).
type LogMailer struct {
	logger *log.Entry
}

// NewLogMailer создаёт мейлер-заглушку с выводом в лог.
func NewLogMailer() *LogMailer {
	return &LogMailer{logger: log.WithField("component", "log-mailer")}
}

// SendMail логирует письмо и всегда возвращает nil.
func (m *LogMailer) SendMail(to, subject, htmlBody string) error {
	m.logger.WithFields(log.Fields{
		"to":      to,
		"subject": subject,
		"bytes":   len(htmlBody),
	}).Info("mail suppressed (smtp not configured)")
	return nil
}

// MockMailer — заглушка Mailer для тестов, запоминает отправленные письма.
type MockMailer struct {
	Err   error
	Sent  []SentMail
	Calls int
}

// SentMail — одно письмо, захваченное MockMailer.
type SentMail struct {
	To      string
	Subject string
	Body    string
}

// SendMail записывает письмо и возвращает настроенную ошибку.
func (m *MockMailer) SendMail(to, subject, htmlBody string) error {
	m.Calls++
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{To: to, Subject: subject, Body: htmlBody})
	return nil
}

var (
	_ domain.Mailer = (*SMTPMailer)(nil)
	_ domain.Mailer = (*LogMailer)(nil)
	_ domain.Mailer = (*MockMailer)(nil)
)
