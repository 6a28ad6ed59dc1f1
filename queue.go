package verisend

import "context"

// BroadcastJob is the payload of one queued broadcast request.
type BroadcastJob struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type QueueService interface {
	Consume(ctx context.Context, topic string) (<-chan []byte, error)
}
