package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chip902/chip-hosting-comments/internal/apierror"
	"github.com/chip902/chip-hosting-comments/internal/identity"
	"github.com/chip902/chip-hosting-comments/internal/models"
	"github.com/chip902/chip-hosting-comments/internal/notify"
	"github.com/chip902/chip-hosting-comments/internal/sanitize"
	"github.com/chip902/chip-hosting-comments/internal/spam"
	"github.com/chip902/chip-hosting-comments/internal/store"
	"github.com/chip902/chip-hosting-comments/internal/voting"
)

const (
	minContentLength = 10
	maxContentLength = 5000
)

type CommentHandler struct {
	store    store.Store
	ledger   *voting.Ledger
	gate     *spam.Gate
	notifier *notify.Notifier
}

func NewCommentHandler(st store.Store, ledger *voting.Ledger, gate *spam.Gate, notifier *notify.Notifier) *CommentHandler {
	return &CommentHandler{
		store:    st,
		ledger:   ledger,
		gate:     gate,
		notifier: notifier,
	}
}

func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func abortWithError(c *gin.Context, err error) {
	status := apierror.StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("comment handler error: %v", err)
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// GetComments returns all approved comments for a post
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID := c.Param("id")

	comments, err := h.store.ListForPost(c.Request.Context(), postID, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	// If no comments, return empty array not null
	if comments == nil {
		comments = []models.Comment{}
	}

	c.JSON(http.StatusOK, comments)
}

// CreateComment creates a new comment. Content is sanitized and the spam
// gate decides whether it is auto-approved, queued, or rejected.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.PostID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post_id is required"})
		return
	}
	if len(input.Content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment content is required"})
		return
	}
	if len(input.Content) < minContentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment must be at least 10 characters"})
		return
	}
	if len(input.Content) > maxContentLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment cannot exceed 5000 characters"})
		return
	}

	ident, ok := identity.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not resolved"})
		return
	}

	if !ident.Authenticated && input.AuthorName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required for anonymous comments"})
		return
	}

	ctx := c.Request.Context()
	exists, err := h.store.PostExists(ctx, input.PostID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify post"})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	comment := &models.Comment{
		ID:              uuid.New().String(),
		PostID:          input.PostID,
		Content:         sanitize.Content(input.Content),
		AuthorName:      input.AuthorName,
		ParentCommentID: input.ParentCommentID,
		Voters:          models.VoterList{},
	}

	if ident.Authenticated {
		if userID, ok := extractUserID(c); ok {
			comment.AuthorID = &userID
		}
	} else {
		comment.AnonymousID = ident.ID
	}

	gateReq := spam.Request{
		Identity:  ident,
		RiskToken: c.GetHeader("X-Recaptcha-V3"),
		IPAddress: identity.RemoteIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Honeypot:  input.Honeypot,
	}
	if err := h.gate.Check(ctx, comment, gateReq); err != nil {
		abortWithError(c, err)
		return
	}

	if err := h.store.Create(ctx, comment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	// Comment count upkeep is best effort; never fail the write over it.
	if err := h.store.AdjustPostCommentCount(ctx, comment.PostID, 1); err != nil {
		log.Printf("Error updating post comment count: %v", err)
	}

	if !comment.IsApproved && !comment.IsSpam {
		h.notifier.CommentQueued(comment)
	}

	c.JSON(http.StatusCreated, comment)
}

// VoteComment casts a vote on a comment — one vote per identity, the
// opposite direction flips the existing vote.
func (h *CommentHandler) VoteComment(c *gin.Context) {
	commentID := c.Param("id")

	var input struct {
		Vote int `json:"vote"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ident, ok := identity.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not resolved"})
		return
	}

	result, err := h.ledger.Cast(c.Request.Context(), commentID, ident.ID, input.Vote)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"comment": result.Comment,
		"vote":    result.Vote,
	})
}

// RemoveVote undoes the caller's vote on a comment
func (h *CommentHandler) RemoveVote(c *gin.Context) {
	commentID := c.Param("id")

	ident, ok := identity.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not resolved"})
		return
	}

	result, err := h.ledger.Remove(c.Request.Context(), commentID, ident.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"comment":     result.Comment,
		"removedVote": result.RemovedVote,
	})
}

// GetVote returns the caller's current vote on a comment, if any
func (h *CommentHandler) GetVote(c *gin.Context) {
	commentID := c.Param("id")

	ident, ok := identity.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity not resolved"})
		return
	}

	status, err := h.ledger.Get(c.Request.Context(), commentID, ident.ID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// DeleteComment removes a comment and decrements the post's comment count
// (admin only).
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID := c.Param("id")

	if _, ok := extractUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.store.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comment"})
		return
	}

	if err := h.store.Delete(ctx, commentID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	if err := h.store.AdjustPostCommentCount(ctx, existing.PostID, -1); err != nil {
		log.Printf("Error updating post comment count: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// ModerateComment updates a comment's approval/spam flags (admin only).
// Voting state cannot be touched through this endpoint.
func (h *CommentHandler) ModerateComment(c *gin.Context) {
	commentID := c.Param("id")

	if _, ok := extractUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		IsApproved bool `json:"is_approved"`
		IsSpam     bool `json:"is_spam"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.store.FindByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comment"})
		return
	}

	updated, err := h.store.SetModeration(ctx, commentID, input.IsApproved, input.IsSpam)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update comment"})
		return
	}

	if !existing.IsApproved && updated.IsApproved {
		h.notifier.CommentApproved(updated)
	}

	c.JSON(http.StatusOK, updated)
}
