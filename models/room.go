package models

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Room is the authoritative state of one planning poker session.
// It is not safe for concurrent use; db.RoomActor serializes access.
type Room struct {
	ID           string
	title        string
	creator      string
	participants map[string]*Participant
	revealed     bool
	history      []Round
	rounds       int
	nextSeq      uint64
	CreatedAt    time.Time
}

// NewRoom creates a planning poker room with its creator as the only participant
func NewRoom(id, title, creatorName string) (*Room, error) {
	title, err := validTitle(title)
	if err != nil {
		return nil, err
	}
	creatorName, err = ValidName(creatorName)
	if err != nil {
		return nil, err
	}

	room := &Room{
		ID:           id,
		title:        title,
		creator:      creatorName,
		participants: make(map[string]*Participant),
		CreatedAt:    time.Now(),
	}
	room.add(creatorName)

	return room, nil
}

// ValidName trims name and checks it is usable as a participant name.
func ValidName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name is longer than %d characters", ErrInvalidInput, MaxNameLength)
	}
	return name, nil
}

func validTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", fmt.Errorf("%w: title is longer than %d characters", ErrInvalidInput, MaxTitleLength)
	}
	return title, nil
}

// ParseVote converts a JSON number into a card value.
func ParseVote(v *float64) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%w: vote is required", ErrInvalidInput)
	}
	if *v != math.Trunc(*v) || !IsCard(int(*v)) {
		return 0, fmt.Errorf("%w: vote must be one of %v", ErrInvalidInput, Cards)
	}
	return int(*v), nil
}

func (r *Room) add(name string) {
	r.participants[name] = &Participant{
		Name:     name,
		JoinedAt: time.Now(),
		seq:      r.nextSeq,
	}
	r.nextSeq++
}

// Title returns the current title
func (r *Room) Title() string { return r.title }

// Creator returns the name of the participant allowed to run creator commands
func (r *Room) Creator() string { return r.creator }

// Revealed reports whether votes are disclosed
func (r *Room) Revealed() bool { return r.revealed }

// Len returns the number of participants
func (r *Room) Len() int { return len(r.participants) }

// Has reports whether name is a participant
func (r *Room) Has(name string) bool {
	_, ok := r.participants[name]
	return ok
}

// Participants returns a copy of the participant entries
func (r *Room) Participants() map[string]Participant {
	out := make(map[string]Participant, len(r.participants))
	for name, p := range r.participants {
		cp := *p
		if p.Vote != nil {
			v := *p.Vote
			cp.Vote = &v
		}
		out[name] = cp
	}
	return out
}

// History returns the saved revealed rounds, oldest first
func (r *Room) History() []Round {
	out := make([]Round, len(r.history))
	copy(out, r.history)
	return out
}

// Join adds name to the room. Joining again with a name already present
// keeps the existing entry and its vote.
func (r *Room) Join(name string) (Change, bool, error) {
	name, err := ValidName(name)
	if err != nil {
		return 0, false, err
	}

	if r.Has(name) {
		return 0, true, nil
	}

	r.add(name)
	return ChangeMembers, false, nil
}

// Vote records a participant's card. It does not change the reveal state.
func (r *Room) Vote(name string, vote int) (Change, error) {
	if err := r.RequireMember(name); err != nil {
		return 0, err
	}
	p := r.participants[strings.TrimSpace(name)]
	if !IsCard(vote) {
		return 0, fmt.Errorf("%w: vote must be one of %v", ErrInvalidInput, Cards)
	}

	if p.Vote != nil && *p.Vote == vote {
		return 0, nil
	}
	p.Vote = &vote
	return ChangeVotes, nil
}

// UpdateTitle sets the room title
func (r *Room) UpdateTitle(name, title string) (Change, error) {
	if err := r.requireCreator(name); err != nil {
		return 0, err
	}
	title, err := validTitle(title)
	if err != nil {
		return 0, err
	}

	if title == r.title {
		return 0, nil
	}
	r.title = title
	return ChangeTitle, nil
}

// Flip toggles whether votes are disclosed
func (r *Room) Flip(name string) (Change, error) {
	if err := r.requireCreator(name); err != nil {
		return 0, err
	}

	r.revealed = !r.revealed
	return ChangeRevealed, nil
}

// ResetVotes clears every vote and hides the round. A revealed round with
// at least one vote is saved to the history first.
func (r *Room) ResetVotes(name string) (Change, error) {
	if err := r.requireCreator(name); err != nil {
		return 0, err
	}

	var change Change
	votes := make(map[string]*int, len(r.participants))
	for pname, p := range r.participants {
		votes[pname] = p.Vote
		if p.Vote != nil {
			change |= ChangeVotes
		}
		p.Vote = nil
	}

	if r.revealed && change&ChangeVotes != 0 {
		r.rounds++
		r.history = append(r.history, Round{
			Number: r.rounds,
			Title:  r.title,
			Votes:  votes,
			At:     time.Now(),
		})
		if len(r.history) > MaxHistory {
			r.history = r.history[len(r.history)-MaxHistory:]
		}
	}

	if r.revealed {
		change |= ChangeRevealed
	}
	r.revealed = false

	return change, nil
}

// Remove evicts a participant. When the creator leaves, the remaining
// participant who joined first becomes creator.
func (r *Room) Remove(name string) (Change, bool) {
	if !r.Has(name) {
		return 0, false
	}
	delete(r.participants, name)

	change := ChangeMembers
	if name == r.creator {
		r.creator = ""
		var first *Participant
		for _, p := range r.participants {
			if first == nil || p.seq < first.seq {
				first = p
			}
		}
		if first != nil {
			r.creator = first.Name
		}
		change |= ChangeCreator
	}

	return change, true
}

// RequireMember fails with ErrNotAMember unless name has joined the room
func (r *Room) RequireMember(name string) error {
	if _, ok := r.participants[strings.TrimSpace(name)]; !ok {
		return fmt.Errorf("%w: %q has not joined room %s", ErrNotAMember, name, r.ID)
	}
	return nil
}

func (r *Room) requireCreator(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name != r.creator {
		return fmt.Errorf("%w (room %s)", ErrForbidden, r.ID)
	}
	return nil
}
