package verisend

// MailService is the interface that wraps the external delivery channel
type MailService interface {
	SendMessage(to *Subscriber, subject, body string) error

	// UnsubscribeURL builds the HMAC-guarded unsubscribe link for an
	// identity. The same URL is used in outgoing mail and as the
	// liveness probe target.
	UnsubscribeURL(identity string) (string, error)

	// HMACSecret returns the secret guarding unsubscribe links.
	HMACSecret() string
}
