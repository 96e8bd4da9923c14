// Package store is the persistence boundary the comment pipeline consumes.
// The core only ever sees this contract; Postgres/GORM backs it in
// production and an in-memory implementation backs it in tests.
package store

import (
	"context"
	"errors"

	"github.com/chip902/chip-hosting-comments/internal/models"
)

// ErrNotFound is returned when a comment or post id is unknown.
var ErrNotFound = errors.New("document not found")

// VotingUpdate is the whole-document voters+votes replacement payload the
// vote ledger persists as one atomic update.
type VotingUpdate struct {
	Voters models.VoterList
	Votes  models.VoteTotals
}

// Store is the document-store contract.
type Store interface {
	// FindByID fetches a comment or returns ErrNotFound.
	FindByID(ctx context.Context, id string) (*models.Comment, error)

	// UpdateVoting replaces a comment's entire voting state. Nothing else
	// on the document is touched.
	UpdateVoting(ctx context.Context, id string, update VotingUpdate) (*models.Comment, error)

	// Create persists a new comment.
	Create(ctx context.Context, comment *models.Comment) error

	// Delete removes a comment or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ListForPost returns a post's comments, newest first. Unapproved
	// comments are only included when requested (moderation views).
	ListForPost(ctx context.Context, postID string, includeUnapproved bool) ([]models.Comment, error)

	// CountApproved counts prior approved comments matching the anonymous
	// id or the IP address. Used for first-time-submitter detection.
	CountApproved(ctx context.Context, anonymousID, ipAddress string) (int64, error)

	// SetModeration updates the approval and spam flags. Voting state is
	// deliberately out of reach of this operation.
	SetModeration(ctx context.Context, id string, isApproved, isSpam bool) (*models.Comment, error)

	// AdjustPostCommentCount shifts a post's denormalized comment count,
	// clamped at zero.
	AdjustPostCommentCount(ctx context.Context, postID string, delta int) error

	// PostExists reports whether a post id is known.
	PostExists(ctx context.Context, postID string) (bool, error)
}
