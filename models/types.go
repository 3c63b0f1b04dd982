package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Participant is a named member of a room. Vote is nil until they vote.
type Participant struct {
	Name     string
	Vote     *int
	JoinedAt time.Time
	seq      uint64
}

// Round is a revealed round saved by ResetVotes.
type Round struct {
	Number int             `json:"number"`
	Title  string          `json:"title"`
	Votes  map[string]*int `json:"votes"`
	At     time.Time       `json:"at"`
}

// Change is the set of room fields an operation modified.
type Change uint8

const (
	ChangeTitle Change = 1 << iota
	ChangeVotes
	ChangeRevealed
	ChangeMembers
	ChangeCreator
)

func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	names := []string{"title", "votes", "revealed", "members", "creator"}
	var parts []string
	for i, name := range names {
		if c&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, ",")
}

// Command is the inbound envelope. Fields not used by Type are ignored.
type Command struct {
	Type   string   `json:"type"`
	RoomID string   `json:"roomId"`
	User   string   `json:"user"`
	Title  string   `json:"title"`
	Vote   *float64 `json:"vote"`
}

// RoomCreated is sent to the creator only.
type RoomCreated struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Title  string `json:"title"`
}

// Snapshot is the disclosed view of a room. It is the payload of both
// joined and update messages.
type Snapshot struct {
	Type     string              `json:"type"`
	RoomID   string              `json:"roomId"`
	Title    string              `json:"title"`
	Votes    map[string]VoteView `json:"votes"`
	Revealed bool                `json:"revealed"`
}

// ErrorMessage reports a rejected command to its sender.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorMessage builds the error reply for err.
func NewErrorMessage(err error) ErrorMessage {
	return ErrorMessage{Type: MessageError, Code: Code(err), Message: err.Error()}
}

// VoteView is one entry of a snapshot's votes. Views built for a hidden
// round carry only the voted flag, never the value.
type VoteView struct {
	revealed bool
	voted    bool
	value    int
}

// Voted reports whether the participant has cast a vote.
func (v VoteView) Voted() bool { return v.voted }

// Value returns the vote and true only for revealed views.
func (v VoteView) Value() (int, bool) {
	if !v.revealed || !v.voted {
		return 0, false
	}
	return v.value, true
}

func (v VoteView) MarshalJSON() ([]byte, error) {
	switch {
	case !v.revealed && v.voted:
		return json.Marshal(StatusHasVoted)
	case !v.revealed:
		return json.Marshal(StatusNotVoted)
	case v.voted:
		return json.Marshal(v.value)
	default:
		return []byte("null"), nil
	}
}

func (v *VoteView) UnmarshalJSON(data []byte) error {
	*v = VoteView{}
	var status string
	if err := json.Unmarshal(data, &status); err == nil {
		v.voted = status == StatusHasVoted
		return nil
	}
	var value *int
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	v.revealed = true
	if value != nil {
		v.voted = true
		v.value = *value
	}
	return nil
}
