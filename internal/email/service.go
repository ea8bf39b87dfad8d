package email

import (
	"errors"
	"fmt"
	"net/mail"
	"net/smtp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoRecipient is returned when a notification has no address
	ErrNoRecipient = errors.New("no recipient")
	// ErrBadRecipient is returned for anything but a single bare address
	ErrBadRecipient = errors.New("invalid recipient")
)

// Sender delivers customer notifications
type Sender interface {
	SendCheckoutConfirmation(to, customerName string, total decimal.Decimal, items []OrderItem) error
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	host     string
	port     string
	from     string
	sendMail sendMailFunc
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host:     host,
		port:     port,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// SendCheckoutConfirmation sends the order confirmation after a checkout
func (s *Service) SendCheckoutConfirmation(to, customerName string, total decimal.Decimal, items []OrderItem) error {
	if to == "" {
		return ErrNoRecipient
	}
	if err := checkRecipient(to); err != nil {
		return err
	}
	subject := "Your order has been placed"
	body := BuildCheckoutConfirmationBody(customerName, total, items)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	if err := s.sendMail(addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// checkRecipient accepts one bare address and nothing that could end the
// To header
func checkRecipient(to string) error {
	if strings.ContainsAny(to, "\r\n") {
		return fmt.Errorf("%w: %q", ErrBadRecipient, to)
	}
	addr, err := mail.ParseAddress(to)
	if err != nil || addr.Address != to {
		return fmt.Errorf("%w: %q", ErrBadRecipient, to)
	}
	return nil
}
