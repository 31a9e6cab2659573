// Package mail delivers transactional email over SMTP.
package mail

import (
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

// Sender delivers a prepared message.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer composes and sends account emails.
type Mailer struct {
	sender Sender
	from   string
}

// NewMailer builds a Mailer backed by an SMTP dialer.
func NewMailer(host string, port int, user, password, from string) *Mailer {
	return NewMailerWithSender(gomail.NewDialer(host, port, user, password), from)
}

// NewMailerWithSender builds a Mailer on an arbitrary sender.
func NewMailerWithSender(s Sender, from string) *Mailer {
	return &Mailer{sender: s, from: from}
}

var otpTemplate = template.Must(template.New("otp").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #ddd; border-radius: 8px;">
	<h2 style="text-align: center;">{{.Title}}</h2>
	<p>Hello {{.Name}},</p>
	<p>{{.Intro}}</p>
	<p style="text-align: center; font-size: 28px; letter-spacing: 6px;"><strong>{{.Code}}</strong></p>
	<p>The code expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>
</div>`))

type otpData struct {
	Title, Name, Intro, Code string
	Minutes                  int
}

// SendVerificationCode mails the registration OTP.
func (m *Mailer) SendVerificationCode(to, name, code string, minutes int) error {
	return m.sendOTP(to, "Verify your email", otpData{
		Title: "Verify your email", Name: name, Code: code, Minutes: minutes,
		Intro: "Use the code below to verify your email address.",
	})
}

// SendPasswordResetCode mails the password reset OTP.
func (m *Mailer) SendPasswordResetCode(to, name, code string, minutes int) error {
	return m.sendOTP(to, "Reset your password", otpData{
		Title: "Reset your password", Name: name, Code: code, Minutes: minutes,
		Intro: "Use the code below to reset your password.",
	})
}

func (m *Mailer) sendOTP(to, subject string, data otpData) error {
	var body strings.Builder
	if err := otpTemplate.Execute(&body, data); err != nil {
		return fmt.Errorf("render mail: %w", err)
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body.String())
	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// LogMailer writes codes to the log instead of sending them. It stands in
// for SMTP in development.
type LogMailer struct {
	Log *slog.Logger
}

func (l LogMailer) SendVerificationCode(to, _, code string, minutes int) error {
	l.Log.Info("mail disabled: verification code", "to", to, "code", code, "ttl_minutes", minutes)
	return nil
}

func (l LogMailer) SendPasswordResetCode(to, _, code string, minutes int) error {
	l.Log.Info("mail disabled: password reset code", "to", to, "code", code, "ttl_minutes", minutes)
	return nil
}
