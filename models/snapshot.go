package models

// RenderVotes builds the votes map clients see. While hidden, a view
// records only whether the participant voted.
func RenderVotes(participants map[string]Participant, revealed bool) map[string]VoteView {
	votes := make(map[string]VoteView, len(participants))
	for name, p := range participants {
		view := VoteView{revealed: revealed, voted: p.Vote != nil}
		if revealed && p.Vote != nil {
			view.value = *p.Vote
		}
		votes[name] = view
	}
	return votes
}

// NewSnapshot renders the room as an outbound message of the given type
// (MessageJoined or MessageUpdate).
func NewSnapshot(msgType string, room *Room) Snapshot {
	return Snapshot{
		Type:     msgType,
		RoomID:   room.ID,
		Title:    room.title,
		Votes:    RenderVotes(room.Participants(), room.revealed),
		Revealed: room.revealed,
	}
}
