package models

import "time"

// Vote directions. Anything outside these two values is rejected before it
// reaches storage.
const (
	VoteUp   = 1
	VoteDown = -1
)

// IsValidVote checks that a direction is exactly +1 or -1.
func IsValidVote(vote int) bool {
	return vote == VoteUp || vote == VoteDown
}

// VoterEntry records a single identity's vote on a comment. A comment holds
// at most one entry per userId; changing a vote flips the entry in place and
// refreshes the timestamp.
type VoterEntry struct {
	UserID    string    `json:"userId"`
	Vote      int       `json:"vote"`
	Timestamp time.Time `json:"timestamp"`
}

// VoterList is stored as a JSONB document alongside the comment.
type VoterList []VoterEntry

// Find returns the index of the entry for userID, or -1.
func (vl VoterList) Find(userID string) int {
	for i, v := range vl {
		if v.UserID == userID {
			return i
		}
	}
	return -1
}

// VoteTotals is the denormalized aggregate kept in sync with the voter list.
type VoteTotals struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	Score     int `json:"score"`
}
