package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/chip902/chip-hosting-comments/internal/models"
)

// Gorm is the Postgres-backed Store. Voters are stored as a JSONB column
// via the GORM JSON serializer; vote totals are embedded columns.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *Gorm) UpdateVoting(ctx context.Context, id string, update VotingUpdate) (*models.Comment, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Select("voters", "vote_upvotes", "vote_downvotes", "vote_score").
		Updates(&models.Comment{
			Voters: update.Voters,
			Votes:  update.Votes,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *Gorm) Create(ctx context.Context, comment *models.Comment) error {
	return s.db.WithContext(ctx).Create(comment).Error
}

func (s *Gorm) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) ListForPost(ctx context.Context, postID string, includeUnapproved bool) ([]models.Comment, error) {
	q := s.db.WithContext(ctx).Where("post_id = ?", postID)
	if !includeUnapproved {
		q = q.Where("is_approved = ?", true)
	}

	var comments []models.Comment
	if err := q.Order("created_at desc").Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Gorm) CountApproved(ctx context.Context, anonymousID, ipAddress string) (int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Comment{}).Where("is_approved = ?", true)

	switch {
	case anonymousID != "" && ipAddress != "":
		q = q.Where("anonymous_id = ? OR ip_address = ?", anonymousID, ipAddress)
	case anonymousID != "":
		q = q.Where("anonymous_id = ?", anonymousID)
	case ipAddress != "":
		q = q.Where("ip_address = ?", ipAddress)
	default:
		return 0, nil
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Gorm) SetModeration(ctx context.Context, id string, isApproved, isSpam bool) (*models.Comment, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Select("is_approved", "is_spam").
		Updates(&models.Comment{IsApproved: isApproved, IsSpam: isSpam})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

func (s *Gorm) PostExists(ctx context.Context, postID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Gorm) AdjustPostCommentCount(ctx context.Context, postID string, delta int) error {
	res := s.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("comment_count", gorm.Expr("GREATEST(comment_count + ?, 0)", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
