package models

import "time"

type Post struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Slug         string    `gorm:"uniqueIndex" json:"slug"`
	AuthorID     int       `json:"author_id"`
	Author       User      `gorm:"foreignKey:AuthorID" json:"author"`
	CommentCount int       `gorm:"default:0" json:"comment_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
