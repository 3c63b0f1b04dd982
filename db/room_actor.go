package db

import (
	"sync"

	"github.com/Arvi89/scrum-poker/models"
)

// RoomActor owns a room and runs every operation on it from a single
// goroutine, in the order callers arrived.
type RoomActor struct {
	room  *models.Room
	inbox chan func(*models.Room)
	quit  chan struct{}
	once  sync.Once
}

func newRoomActor(room *models.Room) *RoomActor {
	a := &RoomActor{
		room:  room,
		inbox: make(chan func(*models.Room)),
		quit:  make(chan struct{}),
	}
	go a.loop()
	return a
}

// ID returns the id of the owned room
func (a *RoomActor) ID() string {
	return a.room.ID
}

func (a *RoomActor) loop() {
	for {
		select {
		case fn := <-a.inbox:
			fn(a.room)
		case <-a.quit:
			return
		}
	}
}

// Do runs fn against the room and waits for it to finish. The inbox is
// unbuffered, so once the hand-off succeeds fn is guaranteed to run.
// It returns models.ErrRoomNotFound after the actor has stopped.
func (a *RoomActor) Do(fn func(room *models.Room)) error {
	done := make(chan struct{})
	ran := false
	select {
	case a.inbox <- func(r *models.Room) {
		defer close(done)
		// select may still pick the inbox after Stop
		if a.Stopped() {
			return
		}
		fn(r)
		ran = true
	}:
	case <-a.quit:
		return models.ErrRoomNotFound
	}
	<-done
	if !ran {
		return models.ErrRoomNotFound
	}
	return nil
}

// Stop ends the actor. It is safe to call from inside Do.
func (a *RoomActor) Stop() {
	a.once.Do(func() { close(a.quit) })
}

// Stopped reports whether Stop has been called
func (a *RoomActor) Stopped() bool {
	select {
	case <-a.quit:
		return true
	default:
		return false
	}
}
