package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversByName(t *testing.T) {
	bus := NewBus()
	done := bus.Subscribe(TaskCompleted)
	all := bus.Subscribe(AllTasksCompleted)
	every := bus.SubscribeAll()

	require.NoError(t, bus.Emit(TaskCompleted, map[string]string{"msg": "hi"}))

	select {
	case e := <-done:
		assert.Equal(t, TaskCompleted, e.Name)
		assert.JSONEq(t, `{"msg":"hi"}`, string(e.Payload))
	case <-time.After(time.Second):
		t.Fatal("task-completed subscriber got nothing")
	}

	select {
	case e := <-every:
		assert.Equal(t, TaskCompleted, e.Name)
	case <-time.After(time.Second):
		t.Fatal("catch-all subscriber got nothing")
	}

	select {
	case e := <-all:
		t.Fatalf("all-tasks-completed subscriber got %s", e.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusPublishNeverBlocksOrDrops(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TaskCompleted)

	// Nobody reads while publishing.
	const n = DefaultBuffer * 4
	for i := 0; i < n; i++ {
		require.NoError(t, bus.Emit(TaskCompleted, i))
	}

	for i := 0; i < n; i++ {
		select {
		case e := <-ch:
			assert.Equal(t, fmt.Sprint(i), string(e.Payload))
		case <-time.After(time.Second):
			t.Fatalf("event %d never delivered", i)
		}
	}
}

func TestBusSlowSubscriberDoesNotStallOthers(t *testing.T) {
	bus := NewBus()
	_ = bus.Subscribe(TaskCompleted) // never read
	fast := bus.Subscribe(TaskCompleted)

	for i := 0; i < DefaultBuffer*2; i++ {
		bus.Publish(Event{Name: TaskCompleted})
	}
	for i := 0; i < DefaultBuffer*2; i++ {
		select {
		case <-fast:
		case <-time.After(time.Second):
			t.Fatalf("fast subscriber stalled after %d events", i)
		}
	}
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(TaskCompleted)

	bus.Close()
	bus.Close()
	bus.Publish(Event{Name: TaskCompleted})

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")

	late := bus.Subscribe(TaskCompleted)
	_, ok = <-late
	assert.False(t, ok, "subscribing after close yields a closed channel")
}

func TestNewWithoutPayload(t *testing.T) {
	e, err := New(AllTasksCompleted, nil)
	require.NoError(t, err)
	assert.Empty(t, e.Payload)
}

func TestInbound(t *testing.T) {
	assert.True(t, Inbound(TaskCompleted))
	assert.True(t, Inbound(AllTasksCompleted))
	assert.False(t, Inbound(KillPython))
	assert.False(t, Inbound(LogMessage))
	assert.False(t, Inbound("anything"))
}
