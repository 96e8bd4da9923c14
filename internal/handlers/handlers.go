package handlers

import (
	"gorm.io/gorm"

	"github.com/chip902/chip-hosting-comments/internal/config"
	"github.com/chip902/chip-hosting-comments/internal/notify"
	"github.com/chip902/chip-hosting-comments/internal/recaptcha"
	"github.com/chip902/chip-hosting-comments/internal/spam"
	"github.com/chip902/chip-hosting-comments/internal/store"
	"github.com/chip902/chip-hosting-comments/internal/voting"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	Post    *PostHandler
	Comment *CommentHandler
}

// NewHandler wires the comment pipeline (store, vote ledger, spam gate,
// notifier) and builds all sub-handlers.
func NewHandler(db *gorm.DB, cfg *config.Config) *Handler {
	st := store.NewGorm(db)

	limiter := spam.NewRateLimiter(cfg.RateLimitMaxComments, cfg.RateLimitWindow)
	gate := spam.NewGate(
		st,
		recaptcha.New(cfg.RecaptchaSecretKey),
		limiter,
		cfg.RecaptchaThreshold,
		cfg.IsProduction(),
	)
	notifier := notify.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.ModeratorPhone)

	return &Handler{
		Auth:    NewAuthHandler(db, []byte(cfg.JWTSecret)),
		Post:    NewPostHandler(db),
		Comment: NewCommentHandler(st, voting.NewLedger(st), gate, notifier),
	}
}
