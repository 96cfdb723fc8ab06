package email

import (
	"fmt"
	"net/smtp"
	"os"
)

// Sender relays a lead inquiry to the catering team's inbox.
type Sender interface {
	SendInquiry(lead Lead) error
}

// Lead is one inquiry from the contact form.
type Lead struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

type EmailService struct {
	host     string
	port     string
	user     string
	password string
	from     string
	to       string
}

func NewEmailService() *EmailService {
	return &EmailService{
		host:     os.Getenv("SMTP_HOST"),
		port:     os.Getenv("SMTP_PORT"),
		user:     os.Getenv("SMTP_USER"),
		password: os.Getenv("SMTP_PASSWORD"),
		from:     os.Getenv("SMTP_FROM"),
		to:       os.Getenv("INQUIRY_TO"),
	}
}

func (e *EmailService) SendInquiry(lead Lead) error {
	subject := fmt.Sprintf("New catering inquiry from %s", lead.Name)
	body := fmt.Sprintf(`New inquiry received through the website.

Name: %s
Email: %s
Phone: %s

Event details:
%s
`, lead.Name, lead.Email, lead.Phone, lead.Description)

	message := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Reply-To: %s\r\n"+
		"Subject: %s\r\n"+
		"\r\n"+
		"%s\r\n", e.from, e.to, lead.Email, subject, body)

	auth := smtp.PlainAuth("", e.user, e.password, e.host)
	addr := fmt.Sprintf("%s:%s", e.host, e.port)

	if err := smtp.SendMail(addr, auth, e.from, []string{e.to}, []byte(message)); err != nil {
		return fmt.Errorf("error sending inquiry email: %w", err)
	}
	return nil
}
