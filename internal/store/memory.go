package store

import (
	"context"
	"sort"
	"sync"

	"github.com/chip902/chip-hosting-comments/internal/models"
)

// Memory is an in-memory Store used by tests. It hands out copies so
// callers can never mutate stored state behind its back.
type Memory struct {
	mu       sync.RWMutex
	comments map[string]*models.Comment
	posts    map[string]*models.Post
}

func NewMemory() *Memory {
	return &Memory{
		comments: make(map[string]*models.Comment),
		posts:    make(map[string]*models.Post),
	}
}

// SeedPost inserts a post directly, bypassing validation.
func (s *Memory) SeedPost(post *models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *post
	s.posts[post.ID] = &cp
}

func cloneComment(c *models.Comment) *models.Comment {
	cp := *c
	cp.Voters = make(models.VoterList, len(c.Voters))
	copy(cp.Voters, c.Voters)
	if c.Content != nil {
		cp.Content = append([]byte(nil), c.Content...)
	}
	return &cp
}

func (s *Memory) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneComment(comment), nil
}

func (s *Memory) UpdateVoting(ctx context.Context, id string, update VotingUpdate) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	comment.Voters = make(models.VoterList, len(update.Voters))
	copy(comment.Voters, update.Voters)
	comment.Votes = update.Votes
	return cloneComment(comment), nil
}

func (s *Memory) Create(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = cloneComment(comment)
	return nil
}

func (s *Memory) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return ErrNotFound
	}
	delete(s.comments, id)
	return nil
}

func (s *Memory) ListForPost(ctx context.Context, postID string, includeUnapproved bool) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Comment
	for _, c := range s.comments {
		if c.PostID != postID {
			continue
		}
		if !includeUnapproved && !c.IsApproved {
			continue
		}
		out = append(out, *cloneComment(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Memory) CountApproved(ctx context.Context, anonymousID, ipAddress string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if anonymousID == "" && ipAddress == "" {
		return 0, nil
	}

	var count int64
	for _, c := range s.comments {
		if !c.IsApproved {
			continue
		}
		if (anonymousID != "" && c.AnonymousID == anonymousID) ||
			(ipAddress != "" && c.IPAddress == ipAddress) {
			count++
		}
	}
	return count, nil
}

func (s *Memory) SetModeration(ctx context.Context, id string, isApproved, isSpam bool) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, ErrNotFound
	}
	comment.IsApproved = isApproved
	comment.IsSpam = isSpam
	return cloneComment(comment), nil
}

func (s *Memory) PostExists(ctx context.Context, postID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.posts[postID]
	return ok, nil
}

func (s *Memory) AdjustPostCommentCount(ctx context.Context, postID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return ErrNotFound
	}
	post.CommentCount += delta
	if post.CommentCount < 0 {
		post.CommentCount = 0
	}
	return nil
}

// Post returns a seeded post for test assertions.
func (s *Memory) Post(id string) (*models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, false
	}
	cp := *post
	return &cp, true
}
