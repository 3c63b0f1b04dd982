package hub

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// State is where a seat is in its connection lifecycle.
type State int

const (
	StateUnknown State = iota
	StateConnected
	StateDisconnected
	StateEvicted
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

type presence struct {
	state State
	since time.Time
	timer *time.Timer
	gen   uint64
}

// Liveness evicts seats that stay disconnected longer than the idle bound.
// A seat moves Connected -> Disconnected on the last connection leaving it,
// and from there back to Connected on a rejoin or to Evicted when the
// timer fires.
type Liveness struct {
	mu      sync.Mutex
	idle    time.Duration
	seats   map[Seat]*presence
	gen     uint64
	onEvict func(Seat)
	stopped bool
	log     zerolog.Logger
}

// NewLiveness creates a manager that calls onEvict from a timer goroutine
// once a seat has been disconnected for idle.
func NewLiveness(idle time.Duration, onEvict func(Seat), log zerolog.Logger) *Liveness {
	return &Liveness{
		idle:    idle,
		seats:   make(map[Seat]*presence),
		onEvict: onEvict,
		log:     log.With().Str("component", "liveness").Logger(),
	}
}

// Connected marks the seat as held by a live connection, cancelling a
// pending eviction.
func (l *Liveness) Connected(s Seat) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.seats[s]
	if ok && p.state == StateDisconnected {
		p.timer.Stop()
		l.log.Debug().Str("room", s.RoomID).Str("user", s.Name).
			Str("away", humanize.Time(p.since)).Msg("participant reconnected")
	}
	l.seats[s] = &presence{state: StateConnected, since: time.Now()}
}

// Disconnected arms the eviction timer for the seat.
func (l *Liveness) Disconnected(s Seat) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return
	}
	if p, ok := l.seats[s]; ok && p.state == StateDisconnected {
		return
	}

	l.gen++
	gen := l.gen
	p := &presence{state: StateDisconnected, since: time.Now(), gen: gen}
	p.timer = time.AfterFunc(l.idle, func() { l.expire(s, gen) })
	l.seats[s] = p
}

func (l *Liveness) expire(s Seat, gen uint64) {
	l.mu.Lock()
	p, ok := l.seats[s]
	if !ok || p.state != StateDisconnected || p.gen != gen || l.stopped {
		l.mu.Unlock()
		return
	}
	p.state = StateEvicted
	p.timer = nil
	since := p.since
	l.mu.Unlock()

	l.log.Info().Str("room", s.RoomID).Str("user", s.Name).
		Str("disconnected", humanize.Time(since)).Msg("evicting idle participant")
	l.onEvict(s)
}

// Forget drops any record of the seat, cancelling its timer.
func (l *Liveness) Forget(s Seat) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.seats[s]; ok {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(l.seats, s)
	}
}

// ForgetRoom drops every seat of a room.
func (l *Liveness) ForgetRoom(roomID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for s, p := range l.seats {
		if s.RoomID != roomID {
			continue
		}
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(l.seats, s)
	}
}

// State returns the current state of the seat
func (l *Liveness) State(s Seat) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.seats[s]; ok {
		return p.state
	}
	return StateUnknown
}

// Stop cancels every pending eviction. Later disconnects are ignored.
func (l *Liveness) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.stopped = true
	for _, p := range l.seats {
		if p.timer != nil {
			p.timer.Stop()
		}
	}
}
