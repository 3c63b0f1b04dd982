package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client is one live connection. Its write pump drains Outbox until the
// registry closes it.
type Client struct {
	id     string
	send   chan []byte
	roomID string
	name   string
}

// ID returns the connection handle
func (c *Client) ID() string { return c.id }

// Outbox returns the channel of encoded messages waiting to be written
func (c *Client) Outbox() <-chan []byte { return c.send }

// Seat is a participant position in a room. It outlives any single
// connection that holds it.
type Seat struct {
	RoomID string
	Name   string
}

// Registry tracks live connections and which room seat each one holds.
type Registry struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	rooms      map[string]map[string]*Client
	bufferSize int
	log        zerolog.Logger
}

// NewRegistry creates a registry whose clients buffer up to bufferSize
// outbound messages.
func NewRegistry(bufferSize int, log zerolog.Logger) *Registry {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Registry{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		bufferSize: bufferSize,
		log:        log.With().Str("component", "registry").Logger(),
	}
}

// Register adds a new connection
func (r *Registry) Register() *Client {
	c := &Client{
		id:   uuid.NewString(),
		send: make(chan []byte, r.bufferSize),
	}

	r.mu.Lock()
	r.clients[c.id] = c
	r.mu.Unlock()

	r.log.Debug().Str("client", c.id).Msg("client registered")
	return c
}

// Unregister forgets the connection and closes its outbox. It returns the
// seat the connection held, if any.
func (r *Registry) Unregister(id string) (Seat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return Seat{}, false
	}
	prev, had := r.disassociateLocked(c)
	delete(r.clients, id)
	close(c.send)

	r.log.Debug().Str("client", id).Msg("client unregistered")
	return prev, had
}

// Associate binds the connection to a room seat, dropping any seat it held
// before. The previous seat is returned when it differs from the new one.
func (r *Registry) Associate(id, roomID, name string) (Seat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		r.log.Warn().Str("client", id).Str("room", roomID).Msg("associate on unknown client")
		return Seat{}, false
	}
	if c.roomID == roomID && c.name == name {
		return Seat{}, false
	}

	prev, had := r.disassociateLocked(c)
	c.roomID, c.name = roomID, name
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]*Client)
		r.rooms[roomID] = members
	}
	members[id] = c

	return prev, had
}

// Disassociate drops the connection's seat
func (r *Registry) Disassociate(id string) (Seat, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[id]
	if !ok {
		return Seat{}, false
	}
	return r.disassociateLocked(c)
}

func (r *Registry) disassociateLocked(c *Client) (Seat, bool) {
	if c.roomID == "" {
		return Seat{}, false
	}
	prev := Seat{RoomID: c.roomID, Name: c.name}
	if members, ok := r.rooms[c.roomID]; ok {
		delete(members, c.id)
		if len(members) == 0 {
			delete(r.rooms, c.roomID)
		}
	}
	c.roomID, c.name = "", ""
	return prev, true
}

// SeatOf returns the seat the connection is bound to
func (r *Registry) SeatOf(id string) (Seat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.clients[id]
	if !exists || c.roomID == "" {
		return Seat{}, false
	}
	return Seat{RoomID: c.roomID, Name: c.name}, true
}

// Send queues msg for one connection. Messages for unknown connections or
// full outboxes are dropped.
func (r *Registry) Send(id string, msg []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		r.log.Debug().Str("client", id).Msg("send to closed client dropped")
		return
	}
	r.sendLocked(c, msg)
}

// Broadcast queues msg for every connection in the room except the given ids.
func (r *Registry) Broadcast(roomID string, msg []byte, except ...string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

outer:
	for id, c := range r.rooms[roomID] {
		for _, skip := range except {
			if id == skip {
				continue outer
			}
		}
		r.sendLocked(c, msg)
	}
}

func (r *Registry) sendLocked(c *Client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		r.log.Warn().Str("client", c.id).Str("room", c.roomID).Msg("outbox full, message dropped")
	}
}

// Connected reports whether any live connection holds the seat
func (r *Registry) Connected(roomID, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.rooms[roomID] {
		if c.name == name {
			return true
		}
	}
	return false
}

// Len returns the number of live connections
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.clients)
}

// RoomLen returns the number of connections associated with the room
func (r *Registry) RoomLen(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[roomID])
}
