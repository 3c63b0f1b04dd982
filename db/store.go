package db

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Arvi89/scrum-poker/models"
)

const maxIDAttempts = 8

// ErrIDExhausted is returned when no free room id could be generated
var ErrIDExhausted = errors.New("could not allocate a unique room id")

// IDGenerator produces room identifiers
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string { return uuid.NewString() }

// Store is the in-memory table of rooms. Each room lives in its own actor.
type Store struct {
	rooms map[string]*RoomActor
	mutex sync.RWMutex
	ids   IDGenerator
	log   zerolog.Logger
}

// NewStore creates a new in-memory store using random UUIDs for room ids
func NewStore(log zerolog.Logger) *Store {
	return NewStoreWithIDs(uuidGenerator{}, log)
}

// NewStoreWithIDs creates a store with a custom id generator
func NewStoreWithIDs(ids IDGenerator, log zerolog.Logger) *Store {
	return &Store{
		rooms: make(map[string]*RoomActor),
		ids:   ids,
		log:   log.With().Str("component", "store").Logger(),
	}
}

// CreateRoom creates a new room with the given title and creator and starts its actor
func (s *Store) CreateRoom(title, creatorName string) (*RoomActor, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := s.ids.Generate()
	for attempt := 1; s.taken(id); attempt++ {
		if attempt == maxIDAttempts {
			return nil, ErrIDExhausted
		}
		s.log.Warn().Str("room", id).Msg("generated room id already in use, retrying")
		id = s.ids.Generate()
	}

	room, err := models.NewRoom(id, title, creatorName)
	if err != nil {
		return nil, err
	}

	actor := newRoomActor(room)
	s.rooms[id] = actor

	s.log.Debug().Str("room", id).Int("rooms", len(s.rooms)).Msg("room created")
	return actor, nil
}

func (s *Store) taken(id string) bool {
	_, exists := s.rooms[id]
	return exists || id == ""
}

// GetRoom returns a room by ID
func (s *Store) GetRoom(roomID string) (*RoomActor, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	actor, exists := s.rooms[roomID]
	if !exists {
		return nil, models.ErrRoomNotFound
	}
	return actor, nil
}

// DeleteRoom removes a room from the store and stops its actor
func (s *Store) DeleteRoom(roomID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	actor, exists := s.rooms[roomID]
	if !exists {
		return false
	}

	delete(s.rooms, roomID)
	actor.Stop()

	s.log.Debug().Str("room", roomID).Int("rooms", len(s.rooms)).Msg("room deleted")
	return true
}

// Len returns the number of rooms
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.rooms)
}

// Close stops every room actor
func (s *Store) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, actor := range s.rooms {
		actor.Stop()
		delete(s.rooms, id)
	}
}
