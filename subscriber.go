package verisend

import "time"

// Subscriber represents one end-user identity and its consent state.
// The consent token and consent proof are set together, only when a
// consent-chain verification succeeds.
type Subscriber struct {
	Identity     string    `json:"identity" storm:"id"`
	DisplayName  string    `json:"display_name,omitempty"`
	Subscribed   bool      `json:"subscribed" storm:"index"`
	ConsentAt    time.Time `json:"consent_at"`
	ConsentToken string    `json:"consent_token"`
	ConsentProof string    `json:"consent_proof"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is one append-only audit record for a message attributed to a
// subscriber. Proof holds the serialized liveness proof generated for
// that send.
type Message struct {
	ID       int       `json:"id" storm:"id,increment"`
	Identity string    `json:"identity" storm:"index"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	SentAt   time.Time `json:"sent_at" storm:"index"`
	Proof    string    `json:"proof"`
}

// Stats holds aggregate counts over the subscriber and message tables.
type Stats struct {
	TotalSubscribers  int `json:"total_subscribers"`
	ActiveSubscribers int `json:"active_subscribers"`
	TotalMessages     int `json:"total_messages"`
}

// SubscriberService is the interface that wraps the subscriber and audit store.
type SubscriberService interface {
	// Subscribe upserts a subscriber: it creates the row if absent,
	// otherwise reactivates it and refreshes the consent fields and
	// updated-at.
	Subscribe(identity, displayName, token, proof string) error

	// Unsubscribe flips the subscription flag off, only if currently
	// subscribed, and reports whether a row was affected. The
	// conditional update must be atomic with respect to concurrent
	// subscribe/unsubscribe calls on the same identity.
	Unsubscribe(identity string) (bool, error)

	// FindByIdentity returns the subscriber, or nil if unknown.
	FindByIdentity(identity string) (*Subscriber, error)

	// IsSubscribed treats an unknown identity as not subscribed.
	IsSubscribed(identity string) (bool, error)

	// FindSubscribed returns a snapshot of all active subscribers.
	FindSubscribed() ([]Subscriber, error)

	// RecordMessage appends one audit record and returns its id. It
	// fails with a not_found error if the identity has no subscriber
	// row.
	RecordMessage(identity, subject, body, proof string) (int, error)

	// FindMessages returns up to limit messages, most recent first.
	FindMessages(identity string, limit int) ([]Message, error)

	// LastMessage returns the most recent message, or nil if none.
	LastMessage(identity string) (*Message, error)

	// CountMessagesSince counts messages for identity sent at or after
	// since; the rate-limit check reads its daily count through this.
	CountMessagesSince(identity string, since time.Time) (int, error)

	Stats() (*Stats, error)
}

// SubscriptionRequest carries the consent-chain parameters for a
// subscribe attempt. Times are epoch milliseconds.
type SubscriptionRequest struct {
	Identity         string `json:"identity"`
	DisplayName      string `json:"display_name,omitempty"`
	Address          string `json:"address"`
	Token            string `json:"token"`
	InitialRequestAt int64  `json:"initial_request"`
	ConfirmedAt      int64  `json:"confirmation"`
}

// MessageRequest asks for a single compliance-checked send.
type MessageRequest struct {
	Identity string `json:"identity"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// BroadcastRequest asks for a send to every active subscriber.
type BroadcastRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// VerdictResponse renders a verification outcome to the caller.
type VerdictResponse struct {
	Message string `json:"message"`
	Verdict string `json:"verdict,omitempty"`
	Proof   string `json:"proof,omitempty"`
}
