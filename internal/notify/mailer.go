// Package notify sends registration outcome emails to doctors
package notify

import (
	"context"
	"fmt"

	"github.com/go-gomail/gomail"
	"github.com/rs/zerolog/log"
	"stealthcompany.com/medadmin/internal/models"
)

// SMTPConfig holds the outgoing mail server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sender is satisfied by *gomail.Dialer
type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer emails doctors through an SMTP server
type Mailer struct {
	from   string
	sender sender
}

// NewMailer creates a Mailer for cfg. From defaults to the username.
func NewMailer(cfg SMTPConfig) *Mailer {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &Mailer{
		from:   from,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

// NotifyDoctorApproved tells the doctor their account is active
func (m *Mailer) NotifyDoctorApproved(ctx context.Context, doctor models.Doctor) error {
	body := fmt.Sprintf("Hello %s,\n\nYour registration has been approved and your license number %s is verified.\nYou can now sign in and manage your appointments.\n\nHospital: %s\nSpecialization: %s\n",
		doctor.Name, doctor.LicenseNumber, doctor.HospitalName, doctor.Specialization)
	return m.send(ctx, doctor.Email, "Your doctor account has been approved", body)
}

// NotifyDoctorRejected tells the doctor their application was declined
func (m *Mailer) NotifyDoctorRejected(ctx context.Context, doctor models.Doctor) error {
	body := fmt.Sprintf("Hello %s,\n\nWe could not approve your registration and your application has been removed.\nYou are welcome to register again with updated details.\n",
		doctor.Name)
	return m.send(ctx, doctor.Email, "Your doctor application was not approved", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("doctor has no email address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	// gomail has no context support; stop waiting once ctx is done
	sent := make(chan error, 1)
	go func() {
		sent <- m.sender.DialAndSend(msg)
	}()

	select {
	case err := <-sent:
		if err != nil {
			return fmt.Errorf("error sending email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("error sending email: %w", ctx.Err())
	}
}

// LogNotifier only logs notifications. It is used when no SMTP host is
// configured.
type LogNotifier struct{}

// NotifyDoctorApproved logs the approval
func (LogNotifier) NotifyDoctorApproved(_ context.Context, doctor models.Doctor) error {
	log.Info().Str("doctorid", doctor.DoctorID).Str("email", doctor.Email).Msg("SMTP not configured, skipping approval email")
	return nil
}

// NotifyDoctorRejected logs the rejection
func (LogNotifier) NotifyDoctorRejected(_ context.Context, doctor models.Doctor) error {
	log.Info().Str("doctorid", doctor.DoctorID).Str("email", doctor.Email).Msg("SMTP not configured, skipping rejection email")
	return nil
}
