package mailer

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/smtp"
	"strings"

	"github.com/jobdesk/apiserver/config"
)

// OTPTTLMinutes is how long a verification code stays valid.
const OTPTTLMinutes = 10

// Sender delivers mail. The SMTP mailer is the production implementation;
// tests substitute a fake.
type Sender interface {
	SendOTP(to, name, otp string) error
}

// Mailer sends mail over plain SMTP with AUTH.
type Mailer struct {
	cfg config.SMTPConfig
}

func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// SendOTP delivers the verification code as a multipart text+HTML mail.
func (m *Mailer) SendOTP(to, name, otp string) error {
	subject := "Verify your email"
	text := fmt.Sprintf(
		"Hello %s,\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not request this, ignore this mail.\n",
		name, otp, OTPTTLMinutes,
	)
	html := fmt.Sprintf(
		`<p>Hello %s,</p><p>Your verification code is <b>%s</b>. It expires in %d minutes.</p><p>If you did not request this, ignore this mail.</p>`,
		name, otp, OTPTTLMinutes,
	)
	return m.send(to, subject, text, html)
}

func (m *Mailer) send(to, subject, text, html string) error {
	const boundary = "mail-alt-boundary"

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", m.cfg.From, m.cfg.User)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(html)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	return smtp.SendMail(addr, auth, m.cfg.User, []string{to}, []byte(b.String()))
}

// GenerateOTP returns a 6-digit numeric code, zero-padded.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
