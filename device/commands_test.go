package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxLatestWins(t *testing.T) {
	b := newInbox()

	_, ok := b.take()
	assert.False(t, ok)

	assert.False(t, b.put(Command{Type: EventPlay, Payload: "nod"}))
	assert.True(t, b.put(Command{Type: EventPlay, Payload: "shy"}))
	assert.True(t, b.put(Command{Type: EventPlay, Payload: "sad"}))
	require.Len(t, b.signal, 1)

	<-b.signal
	cmd, ok := b.take()
	require.True(t, ok)
	assert.Equal(t, "sad", cmd.Payload)

	_, ok = b.take()
	assert.False(t, ok)
}

func TestInboxDrain(t *testing.T) {
	b := newInbox()
	b.put(Command{Type: EventSolid, Payload: "red"})
	b.drain()

	assert.Empty(t, b.signal)
	_, ok := b.take()
	assert.False(t, ok)
	assert.False(t, b.put(Command{Type: EventSolid, Payload: "blue"}))
}
