package mock

import (
	"github.com/stretchr/testify/mock"

	"github.com/verisend/verisend"
)

// MailService is a mock implementation of verisend.MailService
type MailService struct {
	mock.Mock
}

func (m *MailService) SendMessage(to *verisend.Subscriber, subject, body string) error {
	args := m.Called(to, subject, body)
	return args.Error(0)
}

func (m *MailService) UnsubscribeURL(identity string) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MailService) HMACSecret() string {
	args := m.Called()
	return args.String(0)
}
