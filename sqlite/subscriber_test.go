package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verisend/verisend"
)

func newTestService(t *testing.T) verisend.SubscriberService {
	t.Helper()

	db := NewDB(filepath.Join(t.TempDir(), "verisend.db"))
	require.NoError(t, db.Open())
	t.Cleanup(func() {
		_ = db.Close()
	})

	return NewSubscriberService(db)
}

func TestSubscribeUpsert(t *testing.T) {
	ss := newTestService(t)

	require.NoError(t, ss.Subscribe("alice", "Alice", "tok-1", "proof-1"))

	s, err := ss.FindByIdentity("alice")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.True(t, s.Subscribed)
	assert.Equal(t, "tok-1", s.ConsentToken)
	assert.Equal(t, "proof-1", s.ConsentProof)

	// Re-subscribing overwrites the consent fields in place.
	require.NoError(t, ss.Subscribe("alice", "Alice A.", "tok-2", "proof-2"))

	s, err = ss.FindByIdentity("alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", s.DisplayName)
	assert.Equal(t, "tok-2", s.ConsentToken)
	assert.Equal(t, "proof-2", s.ConsentProof)

	stats, err := ss.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalSubscribers)
}

func TestFindByIdentityUnknown(t *testing.T) {
	ss := newTestService(t)

	s, err := ss.FindByIdentity("nobody")
	require.NoError(t, err)
	assert.Nil(t, s)

	subscribed, err := ss.IsSubscribed("nobody")
	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestUnsubscribeGuard(t *testing.T) {
	ss := newTestService(t)
	require.NoError(t, ss.Subscribe("bob", "", "tok", "proof"))

	affected, err := ss.Unsubscribe("bob")
	require.NoError(t, err)
	assert.True(t, affected)

	// Second call finds nothing to flip.
	affected, err = ss.Unsubscribe("bob")
	require.NoError(t, err)
	assert.False(t, affected)

	subscribed, err := ss.IsSubscribed("bob")
	require.NoError(t, err)
	assert.False(t, subscribed)

	affected, err = ss.Unsubscribe("nobody")
	require.NoError(t, err)
	assert.False(t, affected)
}

func TestResubscribeReactivates(t *testing.T) {
	ss := newTestService(t)
	require.NoError(t, ss.Subscribe("carol", "", "tok-1", "proof-1"))

	_, err := ss.Unsubscribe("carol")
	require.NoError(t, err)

	require.NoError(t, ss.Subscribe("carol", "", "tok-2", "proof-2"))

	s, err := ss.FindByIdentity("carol")
	require.NoError(t, err)
	assert.True(t, s.Subscribed)
	assert.Equal(t, "tok-2", s.ConsentToken)
}

func TestRecordMessageUnknownIdentity(t *testing.T) {
	ss := newTestService(t)

	_, err := ss.RecordMessage("ghost", "subject", "body", "proof")
	require.Error(t, err)
	assert.Equal(t, verisend.ErrNotFound, verisend.ErrorCode(err))
}

func TestMessagesRecency(t *testing.T) {
	ss := newTestService(t)
	require.NoError(t, ss.Subscribe("dave", "", "tok", "proof"))

	for _, subject := range []string{"first", "second", "third"} {
		id, err := ss.RecordMessage("dave", subject, "body", "proof")
		require.NoError(t, err)
		assert.Greater(t, id, 0)
	}

	messages, err := ss.FindMessages("dave", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "third", messages[0].Subject)
	assert.Equal(t, "second", messages[1].Subject)

	last, err := ss.LastMessage("dave")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "third", last.Subject)

	n, err := ss.CountMessagesSince("dave", time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ss.CountMessagesSince("dave", time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLastMessageNone(t *testing.T) {
	ss := newTestService(t)
	require.NoError(t, ss.Subscribe("erin", "", "tok", "proof"))

	last, err := ss.LastMessage("erin")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestStats(t *testing.T) {
	ss := newTestService(t)
	require.NoError(t, ss.Subscribe("alice", "", "tok", "proof"))
	require.NoError(t, ss.Subscribe("bob", "", "tok", "proof"))
	_, err := ss.Unsubscribe("bob")
	require.NoError(t, err)
	_, err = ss.RecordMessage("alice", "subject", "body", "proof")
	require.NoError(t, err)

	stats, err := ss.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSubscribers)
	assert.Equal(t, 1, stats.ActiveSubscribers)
	assert.Equal(t, 1, stats.TotalMessages)

	subscribed, err := ss.FindSubscribed()
	require.NoError(t, err)
	require.Len(t, subscribed, 1)
	assert.Equal(t, "alice", subscribed[0].Identity)
}
