package smtp

import (
	"fmt"
	"net/url"

	"github.com/matcornic/hermes/v2"
	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/verisend/verisend"
	"github.com/verisend/verisend/pkg/hash"
)

type mailService struct {
	*verisend.Config
}

// NewMailService returns the SMTP-backed delivery channel
func NewMailService(config *verisend.Config) verisend.MailService {
	return &mailService{
		Config: config,
	}
}

// SendMessage renders and delivers one compliance-checked message. The
// rendered mail always carries the subscriber's unsubscribe link.
func (ms *mailService) SendMessage(to *verisend.Subscriber, subject, body string) error {
	h := hermes.Hermes{
		Product: hermes.Product{
			Name: ms.Config.Compliance.Product.Name,
			Link: ms.Config.Compliance.Unsubscribe.BaseURL,
		},
	}

	unsubscribeURL, err := ms.UnsubscribeURL(to.Identity)
	if err != nil {
		return err
	}

	name := to.DisplayName
	if name == "" {
		name = to.Identity
	}

	email := hermes.Email{
		Body: hermes.Body{
			Name: name,
			Intros: []string{
				body,
			},
			Actions: []hermes.Action{
				{
					Instructions: "If you no longer want to receive these messages, you can opt out at any time.",
					Button: hermes.Button{
						Color: "#DC4D2F",
						Text:  "Unsubscribe",
						Link:  unsubscribeURL,
					},
				},
			},
		},
	}

	emailBody, err := h.GenerateHTML(email)
	if err != nil {
		return errors.Errorf("failed to generate HTML email: %v", err)
	}

	return ms.sendEmail(to.Identity, subject, emailBody)
}

// UnsubscribeURL builds the HMAC-guarded unsubscribe link for identity
func (ms *mailService) UnsubscribeURL(identity string) (string, error) {
	h, err := hash.ComputeHmac256(identity, ms.HMACSecret())
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/unsubscribe?identity=%s&hash=%s",
		ms.Config.Compliance.Unsubscribe.BaseURL,
		url.QueryEscape(identity),
		url.QueryEscape(h)), nil
}

func (ms *mailService) sendEmail(to string, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", ms.Config.Compliance.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)
	d := gomail.NewDialer(ms.Config.SMTP.Host, ms.Config.SMTP.Port, ms.Config.SMTP.Username, ms.Config.SMTP.Password)
	if err := d.DialAndSend(m); err != nil {
		return errors.Errorf("failed to send mail to %s: %v", to, err)
	}

	return nil
}

// HMACSecret gets the unsubscribe HMAC secret from config
func (ms *mailService) HMACSecret() string {
	return ms.Config.Compliance.Unsubscribe.HMAC.Secret
}
