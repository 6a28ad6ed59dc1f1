// Package mock provides testify mocks for the service interfaces.
package mock

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/verisend/verisend"
)

// SubscriberService is a mock implementation of verisend.SubscriberService
type SubscriberService struct {
	mock.Mock
}

func (m *SubscriberService) Subscribe(identity, displayName, token, proof string) error {
	args := m.Called(identity, displayName, token, proof)
	return args.Error(0)
}

func (m *SubscriberService) Unsubscribe(identity string) (bool, error) {
	args := m.Called(identity)
	return args.Bool(0), args.Error(1)
}

func (m *SubscriberService) FindByIdentity(identity string) (*verisend.Subscriber, error) {
	args := m.Called(identity)
	sub, _ := args.Get(0).(*verisend.Subscriber)
	return sub, args.Error(1)
}

func (m *SubscriberService) IsSubscribed(identity string) (bool, error) {
	args := m.Called(identity)
	return args.Bool(0), args.Error(1)
}

func (m *SubscriberService) FindSubscribed() ([]verisend.Subscriber, error) {
	args := m.Called()
	subs, _ := args.Get(0).([]verisend.Subscriber)
	return subs, args.Error(1)
}

func (m *SubscriberService) RecordMessage(identity, subject, body, proof string) (int, error) {
	args := m.Called(identity, subject, body, proof)
	return args.Int(0), args.Error(1)
}

func (m *SubscriberService) FindMessages(identity string, limit int) ([]verisend.Message, error) {
	args := m.Called(identity, limit)
	messages, _ := args.Get(0).([]verisend.Message)
	return messages, args.Error(1)
}

func (m *SubscriberService) LastMessage(identity string) (*verisend.Message, error) {
	args := m.Called(identity)
	msg, _ := args.Get(0).(*verisend.Message)
	return msg, args.Error(1)
}

func (m *SubscriberService) CountMessagesSince(identity string, since time.Time) (int, error) {
	args := m.Called(identity, since)
	return args.Int(0), args.Error(1)
}

func (m *SubscriberService) Stats() (*verisend.Stats, error) {
	args := m.Called()
	stats, _ := args.Get(0).(*verisend.Stats)
	return stats, args.Error(1)
}
