package models

import (
	"encoding/json"
	"time"
)

type Comment struct {
	ID              string          `gorm:"primaryKey" json:"id"`
	PostID          string          `gorm:"index;not null" json:"post_id"`
	Content         json.RawMessage `gorm:"type:jsonb" json:"content"`
	AuthorID        *int            `json:"author_id,omitempty"`
	Author          User            `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	AuthorName      string          `json:"author_name"`
	AnonymousID     string          `gorm:"index" json:"anonymous_id,omitempty"`
	ParentCommentID *string         `json:"parent_comment_id,omitempty"`
	Votes           VoteTotals      `gorm:"embedded;embeddedPrefix:vote_" json:"votes"`
	Voters          VoterList       `gorm:"type:jsonb;serializer:json" json:"voters"`
	IsApproved      bool            `json:"is_approved"`
	IsSpam          bool            `json:"is_spam"`
	IPAddress       string          `json:"-"`
	UserAgent       string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CreateCommentRequest struct {
	PostID          string          `json:"post_id"`
	Content         json.RawMessage `json:"content"`
	AuthorName      string          `json:"author_name"`
	ParentCommentID *string         `json:"parent_comment_id,omitempty"`

	// Hidden form field. Humans never see it; only bots that fill every
	// field populate it.
	Honeypot string `json:"_honeypot"`
}
