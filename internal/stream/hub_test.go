package stream

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmelendez07/MathG/internal/store"
)

func record(userID *int64) store.Record {
	return store.Record{
		ID:        uuid.New(),
		UserID:    userID,
		Action:    "Nuevo inicio de sesión",
		CreatedAt: time.Now(),
	}
}

func collect(t *testing.T, sub *Subscription) []Frame {
	t.Helper()
	var frames []Frame
	for {
		select {
		case frame := <-sub.C:
			frames = append(frames, frame)
		case <-time.After(50 * time.Millisecond):
			return frames
		}
	}
}

func TestNotify_ReachesGlobalAndActorChannels(t *testing.T) {
	hub := NewHub(nil)
	global := hub.Subscribe(GlobalChannel, 4)
	actor := hub.Subscribe(UserChannel(7), 4)
	other := hub.Subscribe(UserChannel(8), 4)
	defer global.Close()
	defer actor.Close()
	defer other.Close()

	userID := int64(7)
	rec := record(&userID)
	hub.Notify(rec)

	globalFrames := collect(t, global)
	require.Len(t, globalFrames, 1)
	assert.Equal(t, GlobalChannel, globalFrames[0].Channel)
	assert.Equal(t, EventName, globalFrames[0].Event)
	assert.Equal(t, rec.ID, globalFrames[0].Log.ID)

	actorFrames := collect(t, actor)
	require.Len(t, actorFrames, 1)
	assert.Equal(t, "log.stream.7", actorFrames[0].Channel)
	assert.Equal(t, rec.ID, actorFrames[0].Log.ID)

	assert.Empty(t, collect(t, other))
}

func TestNotify_GuestReachesOnlyGlobal(t *testing.T) {
	hub := NewHub(nil)
	global := hub.Subscribe(GlobalChannel, 4)
	actor := hub.Subscribe(UserChannel(7), 4)
	defer global.Close()
	defer actor.Close()

	hub.Notify(record(nil))

	assert.Len(t, collect(t, global), 1)
	assert.Empty(t, collect(t, actor))
}

func TestNotify_SlowSubscriberNeverBlocks(t *testing.T) {
	hub := NewHub(nil)
	slow := hub.Subscribe(GlobalChannel, 1)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			hub.Notify(record(nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a slow subscriber")
	}
}

func TestSubscription_CloseStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	sub := hub.Subscribe(GlobalChannel, 4)
	sub.Close()

	// Closing twice is safe, and a closed subscription gets nothing new.
	sub.Close()
	hub.Notify(record(nil))

	_, open := <-sub.C
	assert.False(t, open)
}

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "log.stream.7", UserChannel(7))
	assert.Equal(t, "log.stream", GlobalChannel)
}
