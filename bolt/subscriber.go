package bolt

import (
	"fmt"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/q"
	"github.com/go-errors/errors"

	"github.com/verisend/verisend"
)

type subscriberService struct {
	db *DB
}

func NewSubscriberService(db *DB) verisend.SubscriberService {
	return &subscriberService{
		db: db,
	}
}

// Subscribe upserts a subscriber inside one write transaction.
func (ss *subscriberService) Subscribe(identity, displayName, token, proof string) error {
	tx, err := ss.db.stormDB.Begin(true)
	if err != nil {
		return errors.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	s := verisend.Subscriber{
		Identity:  identity,
		CreatedAt: now,
	}

	var existing verisend.Subscriber
	switch err := tx.One("Identity", identity, &existing); err {
	case nil:
		s.CreatedAt = existing.CreatedAt
	case storm.ErrNotFound:
	default:
		return errors.Errorf("failed to find by identity: %v", err)
	}

	s.DisplayName = displayName
	s.Subscribed = true
	s.ConsentAt = now
	s.ConsentToken = token
	s.ConsentProof = proof
	s.UpdatedAt = now

	if err := tx.Save(&s); err != nil {
		return errors.Errorf("failed to save: %v", err)
	}

	return tx.Commit()
}

// Unsubscribe flips the flag off only if currently subscribed. The
// read and the write share one write transaction, so a concurrent
// subscribe or unsubscribe cannot race it into a lost update.
func (ss *subscriberService) Unsubscribe(identity string) (bool, error) {
	tx, err := ss.db.stormDB.Begin(true)
	if err != nil {
		return false, errors.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var s verisend.Subscriber
	switch err := tx.One("Identity", identity, &s); err {
	case nil:
	case storm.ErrNotFound:
		return false, nil
	default:
		return false, errors.Errorf("failed to find by identity: %v", err)
	}

	if !s.Subscribed {
		return false, nil
	}

	s.Subscribed = false
	s.UpdatedAt = time.Now()
	if err := tx.Save(&s); err != nil {
		return false, errors.Errorf("failed to save: %v", err)
	}

	return true, tx.Commit()
}

// FindByIdentity finds a subscriber by identity
func (ss *subscriberService) FindByIdentity(identity string) (*verisend.Subscriber, error) {
	var s verisend.Subscriber
	if err := ss.db.stormDB.One("Identity", identity, &s); err != nil {
		if err == storm.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Errorf("failed to find by identity: %v", err)
	}

	return &s, nil
}

// IsSubscribed treats an unknown identity as not subscribed
func (ss *subscriberService) IsSubscribed(identity string) (bool, error) {
	s, err := ss.FindByIdentity(identity)
	if err != nil {
		return false, err
	}
	return s != nil && s.Subscribed, nil
}

// FindSubscribed returns all active subscribers
func (ss *subscriberService) FindSubscribed() ([]verisend.Subscriber, error) {
	var subscribers []verisend.Subscriber
	if err := ss.db.stormDB.Find("Subscribed", true, &subscribers); err != nil {
		if err == storm.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Errorf("failed to find subscribed: %v", err)
	}

	return subscribers, nil
}

// RecordMessage appends one audit record. The subscriber row is checked
// in the same transaction, so the foreign reference cannot dangle.
func (ss *subscriberService) RecordMessage(identity, subject, body, proof string) (int, error) {
	tx, err := ss.db.stormDB.Begin(true)
	if err != nil {
		return 0, errors.Errorf("failed to begin transaction: %v", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var s verisend.Subscriber
	if err := tx.One("Identity", identity, &s); err != nil {
		if err == storm.ErrNotFound {
			return 0, &verisend.Error{
				Code:    verisend.ErrNotFound,
				Message: fmt.Sprintf("No subscriber with identity %s.", identity),
				Op:      "bolt.RecordMessage",
			}
		}
		return 0, errors.Errorf("failed to find by identity: %v", err)
	}

	m := verisend.Message{
		Identity: identity,
		Subject:  subject,
		Body:     body,
		SentAt:   time.Now(),
		Proof:    proof,
	}
	if err := tx.Save(&m); err != nil {
		return 0, errors.Errorf("failed to save message: %v", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return m.ID, nil
}

// FindMessages returns up to limit messages for identity, most recent first
func (ss *subscriberService) FindMessages(identity string, limit int) ([]verisend.Message, error) {
	var messages []verisend.Message
	err := ss.db.stormDB.Select(q.Eq("Identity", identity)).
		OrderBy("SentAt", "ID").
		Reverse().
		Limit(limit).
		Find(&messages)
	if err != nil {
		if err == storm.ErrNotFound {
			return nil, nil
		}
		return nil, errors.Errorf("failed to find messages: %v", err)
	}

	return messages, nil
}

// LastMessage returns the most recent message for identity, or nil
func (ss *subscriberService) LastMessage(identity string) (*verisend.Message, error) {
	messages, err := ss.FindMessages(identity, 1)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}

// CountMessagesSince counts messages for identity sent at or after since
func (ss *subscriberService) CountMessagesSince(identity string, since time.Time) (int, error) {
	n, err := ss.db.stormDB.Select(q.Eq("Identity", identity), q.Gte("SentAt", since)).
		Count(new(verisend.Message))
	if err != nil {
		return 0, errors.Errorf("failed to count messages: %v", err)
	}

	return n, nil
}

// Stats returns aggregate counts over both buckets
func (ss *subscriberService) Stats() (*verisend.Stats, error) {
	total, err := ss.db.stormDB.Count(new(verisend.Subscriber))
	if err != nil {
		return nil, errors.Errorf("failed to count subscribers: %v", err)
	}

	active, err := ss.db.stormDB.Select(q.Eq("Subscribed", true)).Count(new(verisend.Subscriber))
	if err != nil {
		return nil, errors.Errorf("failed to count active subscribers: %v", err)
	}

	messages, err := ss.db.stormDB.Count(new(verisend.Message))
	if err != nil {
		return nil, errors.Errorf("failed to count messages: %v", err)
	}

	return &verisend.Stats{
		TotalSubscribers:  total,
		ActiveSubscribers: active,
		TotalMessages:     messages,
	}, nil
}
