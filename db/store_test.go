package db

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Arvi89/scrum-poker/models"
)

type MockIDGenerator struct {
	mock.Mock
}

func (m *MockIDGenerator) Generate() string {
	args := m.Called()
	return args.String(0)
}

func TestStore_CreateAndGetRoom(t *testing.T) {
	store := NewStore(zerolog.Nop())
	defer store.Close()

	actor, err := store.CreateRoom("Sprint 12", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, actor.ID())

	got, err := store.GetRoom(actor.ID())
	require.NoError(t, err)
	assert.Same(t, actor, got)

	err = got.Do(func(room *models.Room) {
		assert.Equal(t, "Sprint 12", room.Title())
		assert.Equal(t, "Alice", room.Creator())
		assert.True(t, room.Has("Alice"))
		assert.False(t, room.Revealed())
	})
	require.NoError(t, err)
}

func TestStore_CreateRoomInvalidInput(t *testing.T) {
	store := NewStore(zerolog.Nop())
	defer store.Close()

	_, err := store.CreateRoom("", "Alice")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Equal(t, 0, store.Len())
}

func TestStore_GetRoomNotFound(t *testing.T) {
	store := NewStore(zerolog.Nop())

	_, err := store.GetRoom("missing")
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestStore_RetriesCollidingIDs(t *testing.T) {
	ids := &MockIDGenerator{}
	ids.On("Generate").Return("id1").Once()
	ids.On("Generate").Return("id1").Once()
	ids.On("Generate").Return("").Once()
	ids.On("Generate").Return("id2").Once()

	store := NewStoreWithIDs(ids, zerolog.Nop())
	defer store.Close()

	first, err := store.CreateRoom("Same", "Alice")
	require.NoError(t, err)
	second, err := store.CreateRoom("Same", "Alice")
	require.NoError(t, err)

	assert.Equal(t, "id1", first.ID())
	assert.Equal(t, "id2", second.ID())
	assert.Equal(t, 2, store.Len())
	ids.AssertExpectations(t)
}

func TestStore_GivesUpOnExhaustedIDs(t *testing.T) {
	ids := &MockIDGenerator{}
	ids.On("Generate").Return("id1")

	store := NewStoreWithIDs(ids, zerolog.Nop())
	defer store.Close()

	_, err := store.CreateRoom("Sprint", "Alice")
	require.NoError(t, err)

	_, err = store.CreateRoom("Sprint", "Alice")
	assert.ErrorIs(t, err, ErrIDExhausted)
	assert.Equal(t, 1, store.Len())
}

func TestStore_ConcurrentCreatesAreUnique(t *testing.T) {
	store := NewStore(zerolog.Nop())
	defer store.Close()

	const n = 200
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			actor, err := store.CreateRoom("Same title", "Alice")
			if assert.NoError(t, err) {
				ids <- actor.ID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, store.Len())
}

func TestStore_DeleteRoomStopsActor(t *testing.T) {
	store := NewStore(zerolog.Nop())

	actor, err := store.CreateRoom("Sprint", "Alice")
	require.NoError(t, err)

	assert.True(t, store.DeleteRoom(actor.ID()))
	assert.False(t, store.DeleteRoom(actor.ID()))

	err = actor.Do(func(*models.Room) { t.Error("must not run on a stopped room") })
	assert.ErrorIs(t, err, models.ErrRoomNotFound)

	_, err = store.GetRoom(actor.ID())
	assert.ErrorIs(t, err, models.ErrRoomNotFound)
}

func TestRoomActor_DeleteFromInsideDo(t *testing.T) {
	store := NewStore(zerolog.Nop())

	actor, err := store.CreateRoom("Sprint", "Alice")
	require.NoError(t, err)

	err = actor.Do(func(room *models.Room) {
		store.DeleteRoom(room.ID)
	})
	require.NoError(t, err)
	assert.True(t, actor.Stopped())
	assert.Equal(t, 0, store.Len())
}

func TestRoomActor_SerializesConcurrentCommands(t *testing.T) {
	store := NewStore(zerolog.Nop())
	defer store.Close()

	actor, err := store.CreateRoom("Sprint", "Alice")
	require.NoError(t, err)

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("voter-%d", i)
			err := actor.Do(func(room *models.Room) {
				_, _, err := room.Join(name)
				assert.NoError(t, err)
				_, err = room.Vote(name, 5)
				assert.NoError(t, err)
			})
			assert.NoError(t, err)
		}(i)
	}

	// A reset racing the votes must leave either all or none of each voter's state.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = actor.Do(func(room *models.Room) {
			_, err := room.ResetVotes("Alice")
			assert.NoError(t, err)
		})
	}()
	wg.Wait()

	err = actor.Do(func(room *models.Room) {
		assert.Equal(t, n+1, room.Len())
		for name, p := range room.Participants() {
			if name == "Alice" {
				continue
			}
			if p.Vote != nil {
				assert.Equal(t, 5, *p.Vote)
			}
		}
	})
	require.NoError(t, err)
}
