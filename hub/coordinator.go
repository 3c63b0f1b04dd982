package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Arvi89/scrum-poker/db"
	"github.com/Arvi89/scrum-poker/models"
)

// Options tunes a Coordinator
type Options struct {
	// EvictAfter is how long a seat may stay disconnected before the
	// participant is removed from the room.
	EvictAfter time.Duration
	// SendBuffer is the outbox size of each connection.
	SendBuffer int
}

// Coordinator routes commands from connections to room actors and fans the
// resulting snapshots out to every connection in the room.
type Coordinator struct {
	store    *db.Store
	registry *Registry
	liveness *Liveness
	log      zerolog.Logger
}

// NewCoordinator creates a coordinator over store
func NewCoordinator(store *db.Store, opts Options, log zerolog.Logger) *Coordinator {
	c := &Coordinator{
		store:    store,
		registry: NewRegistry(opts.SendBuffer, log),
		log:      log.With().Str("component", "coordinator").Logger(),
	}
	c.liveness = NewLiveness(opts.EvictAfter, c.evict, log)
	return c
}

// Registry exposes the connection registry
func (c *Coordinator) Registry() *Registry { return c.registry }

// Liveness exposes the eviction manager
func (c *Coordinator) Liveness() *Liveness { return c.liveness }

// Connect registers a new connection
func (c *Coordinator) Connect() *Client {
	return c.registry.Register()
}

// Disconnect unregisters the connection. If it was the last one holding
// its seat, the seat's eviction timer starts.
func (c *Coordinator) Disconnect(clientID string) {
	prev, had := c.registry.Unregister(clientID)
	if had {
		c.released(prev)
	}
}

// Close cancels pending evictions and stops every room
func (c *Coordinator) Close() {
	c.liveness.Stop()
	c.store.Close()
}

func (c *Coordinator) released(s Seat) {
	if c.registry.Connected(s.RoomID, s.Name) {
		return
	}
	c.log.Debug().Str("room", s.RoomID).Str("user", s.Name).Msg("seat released")
	c.liveness.Disconnected(s)
}

// Handle decodes one inbound frame and applies it. Rejections are sent back
// to the originating connection only.
func (c *Coordinator) Handle(clientID string, raw []byte) {
	var cmd models.Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		c.log.Debug().Err(err).Str("client", clientID).Msg("malformed message")
		c.reject(clientID, fmt.Errorf("%w: malformed message", models.ErrInvalidInput))
		return
	}

	var err error
	switch cmd.Type {
	case models.CommandCreate:
		err = c.create(clientID, cmd)
	case models.CommandJoin:
		err = c.join(clientID, cmd)
	case models.CommandVote:
		err = c.mutate(clientID, cmd, func(room *models.Room) (models.Change, error) {
			if err := room.RequireMember(cmd.User); err != nil {
				return 0, err
			}
			vote, err := models.ParseVote(cmd.Vote)
			if err != nil {
				return 0, err
			}
			return room.Vote(cmd.User, vote)
		})
	case models.CommandUpdateTitle:
		err = c.mutate(clientID, cmd, func(room *models.Room) (models.Change, error) {
			return room.UpdateTitle(cmd.User, cmd.Title)
		})
	case models.CommandFlip:
		err = c.mutate(clientID, cmd, func(room *models.Room) (models.Change, error) {
			return room.Flip(cmd.User)
		})
	case models.CommandResetVotes:
		err = c.mutate(clientID, cmd, func(room *models.Room) (models.Change, error) {
			return room.ResetVotes(cmd.User)
		})
	default:
		err = fmt.Errorf("%w: unknown message type %q", models.ErrInvalidInput, cmd.Type)
	}

	if err != nil {
		c.log.Debug().Err(err).Str("client", clientID).Str("type", cmd.Type).
			Str("room", cmd.RoomID).Str("user", cmd.User).Msg("command rejected")
		c.reject(clientID, err)
	}
}

func (c *Coordinator) create(clientID string, cmd models.Command) error {
	actor, err := c.store.CreateRoom(cmd.Title, cmd.User)
	if err != nil {
		return err
	}

	return actor.Do(func(room *models.Room) {
		c.seat(clientID, Seat{RoomID: room.ID, Name: room.Creator()})
		c.send(clientID, models.RoomCreated{
			Type:   models.MessageRoomCreated,
			RoomID: room.ID,
			Title:  room.Title(),
		})
		c.log.Info().Str("room", room.ID).Str("user", room.Creator()).Msg("room created")
	})
}

func (c *Coordinator) join(clientID string, cmd models.Command) error {
	actor, err := c.lookup(cmd.RoomID)
	if err != nil {
		return err
	}

	var joinErr error
	err = actor.Do(func(room *models.Room) {
		// The joiner sees the room as it was before it arrived
		joined := models.NewSnapshot(models.MessageJoined, room)
		change, rejoined, err := room.Join(cmd.User)
		if err != nil {
			joinErr = err
			return
		}
		name, _ := models.ValidName(cmd.User)
		c.seat(clientID, Seat{RoomID: room.ID, Name: name})

		c.send(clientID, joined)
		c.broadcast(room, clientID)

		c.log.Info().Str("room", room.ID).Str("user", name).Bool("rejoined", rejoined).
			Stringer("changed", change).Msg("participant joined")
	})
	if err != nil {
		return err
	}
	return joinErr
}

// mutate runs op on the target room and, on success, broadcasts the new
// snapshot to the whole room.
func (c *Coordinator) mutate(clientID string, cmd models.Command, op func(*models.Room) (models.Change, error)) error {
	actor, err := c.lookup(cmd.RoomID)
	if err != nil {
		return err
	}

	var opErr error
	err = actor.Do(func(room *models.Room) {
		change, err := op(room)
		if err != nil {
			opErr = err
			return
		}
		c.broadcast(room)

		c.log.Debug().Str("room", room.ID).Str("user", cmd.User).Str("type", cmd.Type).
			Stringer("changed", change).Msg("command applied")
	})
	if err != nil {
		return err
	}
	return opErr
}

func (c *Coordinator) lookup(roomID string) (*db.RoomActor, error) {
	if roomID == "" {
		return nil, fmt.Errorf("%w: roomId is required", models.ErrInvalidInput)
	}
	actor, err := c.store.GetRoom(roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, roomID)
	}
	return actor, nil
}

// seat binds the connection to s. Runs inside the room actor of s.
func (c *Coordinator) seat(clientID string, s Seat) {
	prev, had := c.registry.Associate(clientID, s.RoomID, s.Name)
	c.liveness.Connected(s)
	if had {
		c.released(prev)
	}
}

// evict removes a participant whose seat stayed disconnected. Called from
// a liveness timer goroutine.
func (c *Coordinator) evict(s Seat) {
	actor, err := c.store.GetRoom(s.RoomID)
	if err != nil {
		c.liveness.Forget(s)
		return
	}

	err = actor.Do(func(room *models.Room) {
		if c.registry.Connected(s.RoomID, s.Name) {
			c.liveness.Connected(s)
			return
		}
		change, removed := room.Remove(s.Name)
		if !removed {
			return
		}
		c.liveness.Forget(s)

		if room.Len() == 0 {
			c.store.DeleteRoom(room.ID)
			c.liveness.ForgetRoom(room.ID)
			c.log.Info().Str("room", room.ID).Msg("room empty, deleted")
			return
		}

		c.broadcast(room)
		ev := c.log.Info().Str("room", room.ID).Str("user", s.Name).Stringer("changed", change)
		if change&models.ChangeCreator != 0 {
			ev = ev.Str("creator", room.Creator())
		}
		ev.Msg("participant evicted")
	})
	if err != nil && !errors.Is(err, models.ErrRoomNotFound) {
		c.log.Error().Err(err).Str("room", s.RoomID).Msg("eviction failed")
	}
}

func (c *Coordinator) broadcast(room *models.Room, except ...string) {
	data, err := json.Marshal(models.NewSnapshot(models.MessageUpdate, room))
	if err != nil {
		c.log.Error().Err(err).Str("room", room.ID).Msg("failed to encode snapshot")
		return
	}
	c.registry.Broadcast(room.ID, data, except...)
}

func (c *Coordinator) send(clientID string, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Str("client", clientID).Msg("failed to encode message")
		return
	}
	c.registry.Send(clientID, data)
}

func (c *Coordinator) reject(clientID string, err error) {
	c.send(clientID, models.NewErrorMessage(err))
}
