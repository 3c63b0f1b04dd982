package hub

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg, ok := <-c.Outbox():
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestRegistry_AssociateMovesBetweenRooms(t *testing.T) {
	r := NewRegistry(4, zerolog.Nop())
	c := r.Register()

	_, had := r.Associate(c.ID(), "room-a", "Alice")
	assert.False(t, had)
	assert.True(t, r.Connected("room-a", "Alice"))

	prev, had := r.Associate(c.ID(), "room-b", "Alice")
	require.True(t, had)
	assert.Equal(t, Seat{RoomID: "room-a", Name: "Alice"}, prev)
	assert.False(t, r.Connected("room-a", "Alice"))
	assert.True(t, r.Connected("room-b", "Alice"))
	assert.Equal(t, 0, r.RoomLen("room-a"))

	_, had = r.Associate(c.ID(), "room-b", "Alice")
	assert.False(t, had, "same seat again is a no-op")

	seat, ok := r.SeatOf(c.ID())
	require.True(t, ok)
	assert.Equal(t, Seat{RoomID: "room-b", Name: "Alice"}, seat)
}

func TestRegistry_Disassociate(t *testing.T) {
	r := NewRegistry(4, zerolog.Nop())
	c := r.Register()
	r.Associate(c.ID(), "room-a", "Alice")

	prev, had := r.Disassociate(c.ID())
	assert.True(t, had)
	assert.Equal(t, "room-a", prev.RoomID)
	_, ok := r.SeatOf(c.ID())
	assert.False(t, ok)

	_, had = r.Disassociate(c.ID())
	assert.False(t, had)
}

func TestRegistry_BroadcastReachesOnlyTheRoom(t *testing.T) {
	r := NewRegistry(4, zerolog.Nop())
	alice, bob, carol := r.Register(), r.Register(), r.Register()
	r.Associate(alice.ID(), "room-a", "Alice")
	r.Associate(bob.ID(), "room-a", "Bob")
	r.Associate(carol.ID(), "room-b", "Carol")

	r.Broadcast("room-a", []byte("hello"), bob.ID())

	assert.Equal(t, [][]byte{[]byte("hello")}, drain(alice))
	assert.Empty(t, drain(bob))
	assert.Empty(t, drain(carol))
}

func TestRegistry_FullOutboxDropsWithoutBlocking(t *testing.T) {
	r := NewRegistry(2, zerolog.Nop())
	slow, fast := r.Register(), r.Register()
	r.Associate(slow.ID(), "room", "Slow")
	r.Associate(fast.ID(), "room", "Fast")

	for i := 0; i < 5; i++ {
		r.Broadcast("room", []byte{byte(i)})
		drain(fast)
	}

	assert.Len(t, drain(slow), 2)
}

func TestRegistry_SendAfterUnregisterIsSwallowed(t *testing.T) {
	r := NewRegistry(2, zerolog.Nop())
	c := r.Register()
	r.Associate(c.ID(), "room", "Alice")

	prev, had := r.Unregister(c.ID())
	assert.True(t, had)
	assert.Equal(t, Seat{RoomID: "room", Name: "Alice"}, prev)

	_, open := <-c.Outbox()
	assert.False(t, open, "outbox is closed on unregister")

	assert.NotPanics(t, func() {
		r.Send(c.ID(), []byte("late"))
		r.Broadcast("room", []byte("late"))
	})
	assert.Equal(t, 0, r.Len())

	_, had = r.Unregister(c.ID())
	assert.False(t, had)
}

func TestRegistry_ConnectedWithTwoTabs(t *testing.T) {
	r := NewRegistry(2, zerolog.Nop())
	tab1, tab2 := r.Register(), r.Register()
	r.Associate(tab1.ID(), "room", "Alice")
	r.Associate(tab2.ID(), "room", "Alice")

	r.Unregister(tab1.ID())
	assert.True(t, r.Connected("room", "Alice"))

	r.Unregister(tab2.ID())
	assert.False(t, r.Connected("room", "Alice"))
}
