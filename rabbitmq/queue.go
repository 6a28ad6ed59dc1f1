// Package rabbitmq feeds queued broadcast jobs to the compliance
// pipeline.
package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type QueueService struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewQueueService(url string) (*QueueService, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &QueueService{
		conn: conn,
		ch:   ch,
	}, nil
}

// Consume delivers raw job payloads from topic until ctx is cancelled.
func (s *QueueService) Consume(ctx context.Context, topic string) (<-chan []byte, error) {
	q, err := s.ch.QueueDeclare(
		topic,
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := s.ch.Consume(
		q.Name,
		"",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	jobs := make(chan []byte)

	go func() {
		defer close(jobs)

		for {
			select {
			case <-ctx.Done():
				return
			case d := <-deliveries:
				jobs <- d.Body
			}
		}
	}()

	return jobs, nil
}

// Close closes the channel and the underlying connection.
func (s *QueueService) Close() error {
	if err := s.ch.Close(); err != nil {
		return err
	}
	return s.conn.Close()
}
