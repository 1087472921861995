package notify

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithAsync(t *testing.T) {
	n := New(WithAsync(100))
	require.NotNil(t, n)
	defer n.Close()
	assert.True(t, n.async)
}

func TestChangeType_String(t *testing.T) {
	tests := []struct {
		ct   ChangeType
		want string
	}{
		{ChangeSet, "set"},
		{ChangeDelete, "delete"},
		{ChangeSectionAdd, "section-add"},
		{ChangeSectionRemove, "section-remove"},
		{ChangeReload, "reload"},
		{ChangeType(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.ct.String())
	}
}

func TestNotifier_Subscribe(t *testing.T) {
	n := New()
	defer n.Close()

	var received atomic.Int32
	var lastID string

	sub := n.Subscribe(func(change Change) {
		received.Add(1)
		lastID = change.ID
	})

	n.NotifySet("App", "port", int64(1), int64(2), "test")
	assert.Equal(t, int32(1), received.Load())
	assert.NotEmpty(t, lastID, "notifier should assign an event ID")

	sub.Unsubscribe()
	n.NotifySet("App", "port", int64(2), int64(3), "test")
	assert.Equal(t, int32(1), received.Load(), "unsubscribed observer received notification")
}

func TestNotifier_SubscribeSection(t *testing.T) {
	n := New()
	defer n.Close()

	var appChanges, srvChanges atomic.Int32
	n.SubscribeSection("App", func(Change) { appChanges.Add(1) })
	n.SubscribeSection("Srv", func(Change) { srvChanges.Add(1) })

	n.NotifySet("App", "name", nil, "demo", "")
	n.NotifyDelete("App", "name", "demo", "")
	n.Notify(Change{Type: ChangeSectionRemove, Section: "App"})
	n.NotifySet("Srv", "port", nil, int64(80), "")

	assert.Equal(t, int32(3), appChanges.Load())
	assert.Equal(t, int32(1), srvChanges.Load())

	n.NotifyReload("file.toml")
	assert.Equal(t, int32(4), appChanges.Load())
	assert.Equal(t, int32(2), srvChanges.Load())
}

func TestNotifier_SubscribeKey(t *testing.T) {
	n := New()
	defer n.Close()

	var got []Change
	n.SubscribeKey("App", "port", func(c Change) { got = append(got, c) })

	n.NotifySet("App", "name", nil, "demo", "")
	n.NotifySet("App", "port", nil, int64(8080), "api")
	n.Notify(Change{Type: ChangeSectionAdd, Section: "App"})

	require.Len(t, got, 2)
	assert.Equal(t, "port", got[0].Key)
	assert.Equal(t, int64(8080), got[0].NewValue)
	assert.Equal(t, "api", got[0].Source)
	assert.Equal(t, ChangeSectionAdd, got[1].Type)
}

func TestNotifier_Async(t *testing.T) {
	n := New(WithAsync(10))

	var mu sync.Mutex
	var keys []string
	n.Subscribe(func(c Change) {
		mu.Lock()
		keys = append(keys, c.Key)
		mu.Unlock()
	})

	n.NotifySet("App", "a", nil, int64(1), "")
	n.NotifySet("App", "b", nil, int64(2), "")

	// Close drains buffered changes before returning.
	n.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestNotifier_NotifyAfterClose(t *testing.T) {
	n := New()
	var received atomic.Bool
	n.Subscribe(func(Change) { received.Store(true) })

	n.Close()
	n.Close()
	n.NotifyReload("")

	time.Sleep(10 * time.Millisecond)
	assert.False(t, received.Load())
}
