package models

// Inbound command types
const (
	CommandCreate      = "create"
	CommandJoin        = "join"
	CommandVote        = "vote"
	CommandUpdateTitle = "updateTitle"
	CommandFlip        = "flip"
	CommandResetVotes  = "resetVotes"
)

// Outbound message types
const (
	MessageRoomCreated = "roomCreated"
	MessageJoined      = "joined"
	MessageUpdate      = "update"
	MessageError       = "error"
)

// Vote status shown to peers while the round is hidden
const (
	StatusHasVoted = "hasVoted"
	StatusNotVoted = "notVoted"
)

// Input limits, counted in runes after trimming
const (
	MaxTitleLength = 200
	MaxNameLength  = 64
)

// MaxHistory is how many revealed rounds a room keeps.
const MaxHistory = 50

// Cards lists the planning poker values a participant may vote.
var Cards = []int{1, 2, 3, 5, 8, 13, 20, 40, 100}

// IsCard reports whether v is one of the allowed Cards.
func IsCard(v int) bool {
	for _, c := range Cards {
		if c == v {
			return true
		}
	}
	return false
}
