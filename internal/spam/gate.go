// Package spam decides what happens to newly created comments: approved
// outright, queued for moderation, flagged as spam, or rejected before
// they ever reach storage.
package spam

import (
	"context"
	"log"

	"github.com/chip902/chip-hosting-comments/internal/apierror"
	"github.com/chip902/chip-hosting-comments/internal/identity"
	"github.com/chip902/chip-hosting-comments/internal/models"
	"github.com/chip902/chip-hosting-comments/internal/recaptcha"
	"github.com/chip902/chip-hosting-comments/internal/store"
)

// Request carries everything the gate reads from the HTTP layer.
type Request struct {
	Identity  identity.Identity
	RiskToken string
	IPAddress string
	UserAgent string
	Honeypot  string
}

// Gate is the pre-persistence validation pipeline, run only on comment
// creation.
type Gate struct {
	store      store.Store
	verifier   recaptcha.Verifier
	limiter    *RateLimiter
	threshold  float64
	production bool
}

func NewGate(s store.Store, v recaptcha.Verifier, rl *RateLimiter, threshold float64, production bool) *Gate {
	return &Gate{
		store:      s,
		verifier:   v,
		limiter:    rl,
		threshold:  threshold,
		production: production,
	}
}

// Check runs the pipeline against a draft comment, mutating its approval,
// spam and provenance fields in place. A non-nil error means the write
// must not happen.
//
// Order matters: authenticated bypass, honeypot, bot-risk scoring, rate
// limiting, provenance capture, first-time-submitter moderation.
func (g *Gate) Check(ctx context.Context, comment *models.Comment, req Request) error {
	// Authenticated users skip every check.
	if req.Identity.Authenticated {
		comment.IsApproved = true
		return nil
	}

	if req.Honeypot != "" {
		return apierror.BadRequest("Spam detected")
	}

	if req.RiskToken == "" && g.production {
		return apierror.BadRequest("reCAPTCHA token required")
	}
	if req.RiskToken != "" {
		score := g.verifier.Verify(ctx, req.RiskToken)
		if score < g.threshold {
			// Flagged, not rejected: the write continues so the
			// submission is kept with its provenance.
			comment.IsSpam = true
			comment.IsApproved = false
		}
	}

	// Keyed by anonymous id, falling back to IP. A cleared cookie
	// mid-window therefore starts a fresh window; documented behavior,
	// kept as is.
	limitKey := req.Identity.ID
	if limitKey == "" {
		limitKey = req.IPAddress
	}
	if limitKey == "" {
		limitKey = "unknown"
	}
	if g.limiter.Exceeded(limitKey) {
		return apierror.TooManyRequests("Rate limit exceeded. Please try again later.")
	}

	comment.IPAddress = req.IPAddress
	comment.UserAgent = req.UserAgent

	if !comment.IsSpam {
		if g.isFirstTimeSubmitter(ctx, req.Identity.ID, req.IPAddress) {
			comment.IsApproved = false // queue for moderation
		} else {
			comment.IsApproved = true
		}
	}

	return nil
}

// isFirstTimeSubmitter checks for any prior approved comment from the same
// identity, matched by anonymous id or IP. A store failure is swallowed
// and treated as first-time: queueing for moderation is the safe failure
// mode, failing the request is not.
func (g *Gate) isFirstTimeSubmitter(ctx context.Context, anonymousID, ipAddress string) bool {
	count, err := g.store.CountApproved(ctx, anonymousID, ipAddress)
	if err != nil {
		log.Printf("Error checking first-time commenter: %v", err)
		return true
	}
	return count == 0
}
