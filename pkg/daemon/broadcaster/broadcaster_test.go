package broadcaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_Subscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub, err := b.Subscribe("/tmp/test/", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, "/tmp/test", sub.Root)
	assert.Equal(t, 1, b.SubscriberCount())

	_, err = b.Subscribe("/tmp/test", []string{"["})
	assert.Error(t, err)
}

func TestBroadcaster_Notify_MatchingFile(t *testing.T) {
	b := New()
	defer b.Close()

	sub, err := b.Subscribe("/tmp/test", nil)
	require.NoError(t, err)

	b.Notify("/tmp/test/a.tmp", EventDeleted)

	select {
	case event := <-sub.Events:
		assert.Equal(t, EventDeleted, event.Type)
		assert.Equal(t, "/tmp/test/a.tmp", event.Path)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected event not received")
	}
}

func TestBroadcaster_Notify_FiltersByPath(t *testing.T) {
	b := New()
	defer b.Close()

	sub, err := b.Subscribe("/tmp/test", nil)
	require.NoError(t, err)

	// Outside the root, and a sibling sharing the prefix.
	b.Notify("/other/path/a.tmp", EventCreated)
	b.Notify("/tmp/testing/a.tmp", EventCreated)

	select {
	case <-sub.Events:
		t.Fatal("should not receive event for file outside root")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_Notify_Ignore(t *testing.T) {
	b := New()
	defer b.Close()

	sub, err := b.Subscribe("/tmp/test", []string{"*.swp"})
	require.NoError(t, err)

	b.Notify("/tmp/test/.notes.swp", EventModified)
	b.Notify("/tmp/test/notes.txt", EventModified)

	select {
	case event := <-sub.Events:
		assert.Equal(t, "/tmp/test/notes.txt", event.Path)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected event not received")
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	sub, err := b.Subscribe("/tmp/test", nil)
	require.NoError(t, err)
	b.Unsubscribe(sub.ID)

	_, ok := <-sub.Events
	assert.False(t, ok, "channel should be closed after unsubscribe")
	assert.Equal(t, 0, b.SubscriberCount())
}

func TestBroadcaster_Close(t *testing.T) {
	b := New()
	sub, err := b.Subscribe("/tmp/test", nil)
	require.NoError(t, err)

	b.Close()
	b.Close()

	_, ok := <-sub.Events
	assert.False(t, ok)

	_, err = b.Subscribe("/tmp/test", nil)
	assert.ErrorIs(t, err, ErrClosed)

	// Notify after close is a no-op.
	b.Notify("/tmp/test/x", EventCreated)
}

func TestEventType_String(t *testing.T) {
	assert.Equal(t, "created", EventCreated.String())
	assert.Equal(t, "renamed", EventRenamed.String())
	assert.Equal(t, "unknown", EventType(9).String())
}
