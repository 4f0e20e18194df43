package impl

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"auth/internal/service"
)

// ChannelNotifier routes a message to the email or SMS sender based on the
// destination channel.
type ChannelNotifier struct {
	Email service.Notifier
	SMS   service.Notifier
}

func (n *ChannelNotifier) SendCode(ctx context.Context, dest service.Destination, code, displayName string) error {
	return n.pick(dest).SendCode(ctx, dest, code, displayName)
}

func (n *ChannelNotifier) SendConfirmation(ctx context.Context, dest service.Destination, displayName string) error {
	return n.pick(dest).SendConfirmation(ctx, dest, displayName)
}

func (n *ChannelNotifier) pick(dest service.Destination) service.Notifier {
	if dest.Channel == service.ChannelEmail {
		return n.Email
	}
	return n.SMS
}

// ====== Email (SMTP) ======

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPNotifier struct {
	cfg SMTPConfig
}

func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier { return &SMTPNotifier{cfg: cfg} }

func (n *SMTPNotifier) SendCode(ctx context.Context, dest service.Destination, code, displayName string) error {
	subject := "Johri Password Reset OTP"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour OTP code is: %s\r\nThis code expires in 5 minutes.\r\n\r\nYou have a maximum of 5 attempts to enter the correct OTP.\r\nIf you didn't request this, please ignore this email.\r\n\r\nBest regards,\r\nJohri Security Team\r\n",
		displayName, code)
	return n.send(dest.Address, subject, body)
}

func (n *SMTPNotifier) SendConfirmation(ctx context.Context, dest service.Destination, displayName string) error {
	subject := "Johri Password Reset Successful"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\nYour password for your Johri account has been successfully reset.\r\nIf you did not perform this action, please contact support immediately.\r\n\r\nBest regards,\r\nJohri Security Team\r\n",
		displayName)
	return n.send(dest.Address, subject, body)
}

func (n *SMTPNotifier) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", n.cfg.From, to, subject, body)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	return smtp.SendMail(addr, auth, n.cfg.From, []string{to}, []byte(msg))
}

// ====== SMS ======

// SMSLogNotifier stands in for an SMS gateway: it logs the message instead
// of delivering it. Swap in a provider-backed implementation behind the same
// interface when a gateway account exists.
type SMSLogNotifier struct{}

func NewSMSLogNotifier() *SMSLogNotifier { return &SMSLogNotifier{} }

func (n *SMSLogNotifier) SendCode(ctx context.Context, dest service.Destination, code, displayName string) error {
	slog.Info("simulating otp sms", "to", dest.Address, "name", displayName, "code", code)
	return nil
}

func (n *SMSLogNotifier) SendConfirmation(ctx context.Context, dest service.Destination, displayName string) error {
	slog.Info("simulating confirmation sms", "to", dest.Address, "name", displayName)
	return nil
}
