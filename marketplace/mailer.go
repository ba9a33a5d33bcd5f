package marketplace

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

// Mailer delivers the verification and password reset codes.
type Mailer interface {
	SendOTP(ctx context.Context, email, name, otp string) error
	SendPasswordReset(ctx context.Context, email, name, otp string) error
}

// ResendMailer sends through the Resend API.
type ResendMailer struct {
	client *resend.Client
	from   string
}

var _ Mailer = (*ResendMailer)(nil)

func NewResendMailer(apiKey, from string) *ResendMailer {
	return &ResendMailer{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (m *ResendMailer) SendOTP(ctx context.Context, email, name, otp string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Verify Your Mechanic Registration",
		Html:    otpEmailBody(name, otp),
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	return err
}

func (m *ResendMailer) SendPasswordReset(ctx context.Context, email, name, otp string) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "Reset Your Password",
		Html:    resetEmailBody(name, otp),
	}

	_, err := m.client.Emails.SendWithContext(ctx, params)
	return err
}

func otpEmailBody(name, otp string) string {
	return fmt.Sprintf(`<div>
  <h2>Hello %s,</h2>
  <p>Thank you for registering as a mechanic. To complete your registration, please verify your email address.</p>
  <p>Your verification code:</p>
  <p style="font-size:32px;font-weight:bold;letter-spacing:5px;">%s</p>
  <ul>
    <li>This code is valid for 15 minutes</li>
    <li>Do not share this code with anyone</li>
    <li>If you didn't request this, please ignore this email</li>
  </ul>
</div>`, name, otp)
}

func resetEmailBody(name, otp string) string {
	return fmt.Sprintf(`<div>
  <h2>Hello %s,</h2>
  <p>We received a request to reset your password. Use the code below to continue.</p>
  <p style="font-size:32px;font-weight:bold;letter-spacing:5px;">%s</p>
  <p>The code is valid for 15 minutes. If you didn't request this, you can ignore this email.</p>
</div>`, name, otp)
}
