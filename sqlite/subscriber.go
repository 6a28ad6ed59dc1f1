package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

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

// Subscribe upserts a subscriber: a new identity gets a fresh row, a
// known one is reactivated with the new consent fields. updated_at is
// refreshed even for repeated identical calls.
func (ss *subscriberService) Subscribe(identity, displayName, token, proof string) error {
	now := time.Now().UnixMilli()
	_, err := ss.db.sqlDB.Exec(`
		INSERT INTO subscribers (identity, display_name, subscribed, consent_at, consent_token, consent_proof, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, ?, ?, ?)
		ON CONFLICT (identity) DO UPDATE SET
			display_name = excluded.display_name,
			subscribed = 1,
			consent_at = excluded.consent_at,
			consent_token = excluded.consent_token,
			consent_proof = excluded.consent_proof,
			updated_at = excluded.updated_at`,
		identity, displayName, now, token, proof, now, now)
	if err != nil {
		return fmt.Errorf("failed to subscribe %s: %w", identity, err)
	}
	return nil
}

// Unsubscribe flips the flag off with a single conditional UPDATE, so a
// concurrent subscribe or unsubscribe on the same identity cannot cause
// a lost update. The affected-row count is the double-unsubscribe guard.
func (ss *subscriberService) Unsubscribe(identity string) (bool, error) {
	res, err := ss.db.sqlDB.Exec(
		"UPDATE subscribers SET subscribed = 0, updated_at = ? WHERE identity = ? AND subscribed = 1",
		time.Now().UnixMilli(), identity)
	if err != nil {
		return false, fmt.Errorf("failed to unsubscribe %s: %w", identity, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByIdentity finds a subscriber by identity
func (ss *subscriberService) FindByIdentity(identity string) (*verisend.Subscriber, error) {
	row := ss.db.sqlDB.QueryRow(
		"SELECT identity, display_name, subscribed, consent_at, consent_token, consent_proof, created_at, updated_at FROM subscribers WHERE identity = ?",
		identity)

	s, err := scanSubscriber(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Subscriber not found
		}
		return nil, fmt.Errorf("failed to find by identity %s: %w", identity, err)
	}
	return s, nil
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
	rows, err := ss.db.sqlDB.Query(
		"SELECT identity, display_name, subscribed, consent_at, consent_token, consent_proof, created_at, updated_at FROM subscribers WHERE subscribed = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to find subscribed: %w", err)
	}
	defer rows.Close()

	var subscribers []verisend.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		subscribers = append(subscribers, *s)
	}

	return subscribers, rows.Err()
}

// RecordMessage appends one audit record. The foreign key on identity
// turns an unknown subscriber into a not_found error.
func (ss *subscriberService) RecordMessage(identity, subject, body, proof string) (int, error) {
	res, err := ss.db.sqlDB.Exec(
		"INSERT INTO messages (identity, subject, body, sent_at, proof) VALUES (?, ?, ?, ?, ?)",
		identity, subject, body, time.Now().UnixMilli(), proof)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return 0, &verisend.Error{
				Code:    verisend.ErrNotFound,
				Message: fmt.Sprintf("No subscriber with identity %s.", identity),
				Op:      "sqlite.RecordMessage",
			}
		}
		return 0, fmt.Errorf("failed to record message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return int(id), nil
}

// FindMessages returns up to limit messages for identity, most recent first
func (ss *subscriberService) FindMessages(identity string, limit int) ([]verisend.Message, error) {
	rows, err := ss.db.sqlDB.Query(
		"SELECT id, identity, subject, body, sent_at, proof FROM messages WHERE identity = ? ORDER BY sent_at DESC, id DESC LIMIT ?",
		identity, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}
	defer rows.Close()

	var messages []verisend.Message
	for rows.Next() {
		var (
			m      verisend.Message
			sentAt int64
		)
		if err := rows.Scan(&m.ID, &m.Identity, &m.Subject, &m.Body, &sentAt, &m.Proof); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		m.SentAt = time.UnixMilli(sentAt)
		messages = append(messages, m)
	}

	return messages, rows.Err()
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
	var n int
	err := ss.db.sqlDB.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE identity = ? AND sent_at >= ?",
		identity, since.UnixMilli()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// Stats returns aggregate counts. Each count is its own snapshot read;
// minor skew across the three under concurrent writes is acceptable.
func (ss *subscriberService) Stats() (*verisend.Stats, error) {
	var stats verisend.Stats
	if err := ss.db.sqlDB.QueryRow("SELECT COUNT(*) FROM subscribers").Scan(&stats.TotalSubscribers); err != nil {
		return nil, fmt.Errorf("failed to count subscribers: %w", err)
	}
	if err := ss.db.sqlDB.QueryRow("SELECT COUNT(*) FROM subscribers WHERE subscribed = 1").Scan(&stats.ActiveSubscribers); err != nil {
		return nil, fmt.Errorf("failed to count active subscribers: %w", err)
	}
	if err := ss.db.sqlDB.QueryRow("SELECT COUNT(*) FROM messages").Scan(&stats.TotalMessages); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	return &stats, nil
}

func scanSubscriber(scan func(dest ...interface{}) error) (*verisend.Subscriber, error) {
	var (
		s          verisend.Subscriber
		subscribed int
		consentAt  int64
		createdAt  int64
		updatedAt  int64
	)
	if err := scan(&s.Identity, &s.DisplayName, &subscribed, &consentAt, &s.ConsentToken, &s.ConsentProof, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	s.Subscribed = subscribed != 0
	s.ConsentAt = time.UnixMilli(consentAt)
	s.CreatedAt = time.UnixMilli(createdAt)
	s.UpdatedAt = time.UnixMilli(updatedAt)

	return &s, nil
}
