// Package voting maintains the per-comment vote ledger: a deduplicated
// voter list plus denormalized totals, mutated through cast, remove and
// query operations.
package voting

import (
	"context"
	"errors"
	"time"

	"github.com/chip902/chip-hosting-comments/internal/apierror"
	"github.com/chip902/chip-hosting-comments/internal/models"
	"github.com/chip902/chip-hosting-comments/internal/store"
)

// Ledger executes vote operations against the document store. Each
// mutation is a read of the whole comment, a recompute, and a single
// whole-document voters+votes write. Two concurrent votes by the same
// voter race; last writer wins (no optimistic locking; normalize repairs
// whatever state the race leaves behind).
type Ledger struct {
	store store.Store
}

func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// CastResult reports a successful cast: the updated comment and the vote
// record that was applied.
type CastResult struct {
	Comment *models.Comment   `json:"comment"`
	Vote    models.VoterEntry `json:"vote"`
}

// RemoveResult reports a successful un-vote.
type RemoveResult struct {
	Comment     *models.Comment   `json:"comment"`
	RemovedVote models.VoterEntry `json:"removedVote"`
}

// VoteStatus is a voter's current position on a comment. Vote is nil when
// the voter has no entry.
type VoteStatus struct {
	Vote      *int       `json:"vote"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Cast records a vote for voterID on a comment. Casting the direction the
// voter already holds is rejected; casting the opposite direction flips the
// existing entry in place.
func (l *Ledger) Cast(ctx context.Context, commentID, voterID string, vote int) (*CastResult, error) {
	if !models.IsValidVote(vote) {
		return nil, apierror.BadRequest("Vote must be either 1 (upvote) or -1 (downvote)")
	}

	comment, err := l.store.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.NotFound("Comment not found")
		}
		return nil, err
	}

	voters, totals := normalize(comment.Voters, comment.Votes)
	entry := models.VoterEntry{
		UserID:    voterID,
		Vote:      vote,
		Timestamp: time.Now().UTC(),
	}

	if i := voters.Find(voterID); i >= 0 {
		old := voters[i].Vote
		if old == vote {
			return nil, apierror.BadRequest("You have already cast this vote")
		}

		// Flip in place: one entry per voter, totals move by two.
		voters[i] = entry
		if vote == models.VoteUp {
			totals.Upvotes++
			totals.Downvotes--
		} else {
			totals.Downvotes++
			totals.Upvotes--
		}
	} else {
		voters = append(voters, entry)
		if vote == models.VoteUp {
			totals.Upvotes++
		} else {
			totals.Downvotes++
		}
	}

	totals = clamp(totals)

	updated, err := l.store.UpdateVoting(ctx, commentID, store.VotingUpdate{
		Voters: voters,
		Votes:  totals,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.NotFound("Comment not found")
		}
		return nil, err
	}

	return &CastResult{Comment: updated, Vote: entry}, nil
}

// Remove deletes voterID's entry from a comment.
func (l *Ledger) Remove(ctx context.Context, commentID, voterID string) (*RemoveResult, error) {
	comment, err := l.store.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.NotFound("Comment not found")
		}
		return nil, err
	}

	voters, totals := normalize(comment.Voters, comment.Votes)
	i := voters.Find(voterID)
	if i < 0 {
		return nil, apierror.BadRequest("No vote found to remove")
	}

	removed := voters[i]
	voters = append(voters[:i], voters[i+1:]...)
	if removed.Vote == models.VoteUp {
		totals.Upvotes--
	} else {
		totals.Downvotes--
	}
	totals = clamp(totals)

	updated, err := l.store.UpdateVoting(ctx, commentID, store.VotingUpdate{
		Voters: voters,
		Votes:  totals,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.NotFound("Comment not found")
		}
		return nil, err
	}

	return &RemoveResult{Comment: updated, RemovedVote: removed}, nil
}

// Get returns voterID's current vote on a comment without mutating
// anything.
func (l *Ledger) Get(ctx context.Context, commentID, voterID string) (*VoteStatus, error) {
	comment, err := l.store.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apierror.NotFound("Comment not found")
		}
		return nil, err
	}

	voters, _ := normalize(comment.Voters, comment.Votes)
	i := voters.Find(voterID)
	if i < 0 {
		return &VoteStatus{}, nil
	}

	vote := voters[i].Vote
	ts := voters[i].Timestamp
	return &VoteStatus{Vote: &vote, Timestamp: &ts}, nil
}

// normalize repairs a comment's persisted voting state on every read:
// entries without a userId or with a direction outside {+1,-1} are dropped,
// negative counters reset to zero, and the score is always recomputed from
// the counters rather than trusted from storage. This is what keeps the
// aggregate self-healing against partial writes.
func normalize(voters models.VoterList, totals models.VoteTotals) (models.VoterList, models.VoteTotals) {
	cleaned := make(models.VoterList, 0, len(voters))
	for _, v := range voters {
		if v.UserID == "" || !models.IsValidVote(v.Vote) {
			continue
		}
		cleaned = append(cleaned, v)
	}
	return cleaned, clamp(totals)
}

// clamp floors the counters at zero and recomputes the score.
func clamp(totals models.VoteTotals) models.VoteTotals {
	if totals.Upvotes < 0 {
		totals.Upvotes = 0
	}
	if totals.Downvotes < 0 {
		totals.Downvotes = 0
	}
	totals.Score = totals.Upvotes - totals.Downvotes
	return totals
}
