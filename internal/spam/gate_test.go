package spam

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chip902/chip-hosting-comments/internal/apierror"
	"github.com/chip902/chip-hosting-comments/internal/identity"
	"github.com/chip902/chip-hosting-comments/internal/models"
	"github.com/chip902/chip-hosting-comments/internal/store"
)

type stubVerifier struct {
	score float64
}

func (v stubVerifier) Verify(ctx context.Context, token string) float64 {
	return v.score
}

// failingCounts wraps a Store and fails the approved-comment count, to
// exercise the fail-closed path.
type failingCounts struct {
	store.Store
}

func (f failingCounts) CountApproved(ctx context.Context, anonymousID, ipAddress string) (int64, error) {
	return 0, errors.New("store unavailable")
}

func anonRequest() Request {
	return Request{
		Identity:  identity.Identity{ID: "anon_0123456789abcdef"},
		RiskToken: "token",
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
	}
}

func newGate(st store.Store, score float64) *Gate {
	return NewGate(st, stubVerifier{score: score}, NewRateLimiter(10, time.Hour), 0.7, false)
}

func TestGate_AuthenticatedBypass(t *testing.T) {
	gate := newGate(store.NewMemory(), 0.0) // score would flag anyone else

	comment := &models.Comment{ID: "c1"}
	req := Request{
		Identity: identity.Identity{ID: "42", Authenticated: true},
		Honeypot: "filled", // ignored: no check runs for authenticated users
	}

	if err := gate.Check(context.Background(), comment, req); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !comment.IsApproved {
		t.Fatal("authenticated comment must be auto-approved")
	}
	if comment.IsSpam {
		t.Fatal("authenticated comment must skip spam scoring")
	}
}

func TestGate_HoneypotRejects(t *testing.T) {
	gate := newGate(store.NewMemory(), 0.9)

	req := anonRequest()
	req.Honeypot = "x"

	err := gate.Check(context.Background(), &models.Comment{ID: "c1"}, req)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if apierror.StatusOf(err) != 400 || err.Error() != "Spam detected" {
		t.Fatalf("err = %v (status %d)", err, apierror.StatusOf(err))
	}
}

func TestGate_RiskTokenRequiredInProduction(t *testing.T) {
	gate := NewGate(store.NewMemory(), stubVerifier{score: 0.9}, NewRateLimiter(10, time.Hour), 0.7, true)

	req := anonRequest()
	req.RiskToken = ""

	err := gate.Check(context.Background(), &models.Comment{ID: "c1"}, req)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if apierror.StatusOf(err) != 400 {
		t.Fatalf("status = %d, want 400", apierror.StatusOf(err))
	}
}

func TestGate_MissingTokenAllowedInDevelopment(t *testing.T) {
	gate := newGate(store.NewMemory(), 0.9)

	req := anonRequest()
	req.RiskToken = ""

	comment := &models.Comment{ID: "c1"}
	if err := gate.Check(context.Background(), comment, req); err != nil {
		t.Fatalf("check: %v", err)
	}
	if comment.IsSpam {
		t.Fatal("no token means no scoring, not spam")
	}
}

func TestGate_LowScoreFlagsSpamWithoutRejecting(t *testing.T) {
	gate := newGate(store.NewMemory(), 0.2)

	comment := &models.Comment{ID: "c1"}
	if err := gate.Check(context.Background(), comment, anonRequest()); err != nil {
		t.Fatalf("low score must not reject the write: %v", err)
	}

	if !comment.IsSpam {
		t.Fatal("score below threshold must set isSpam")
	}
	if comment.IsApproved {
		t.Fatal("flagged comment must not be approved")
	}
	// Provenance is still recorded for flagged submissions.
	if comment.IPAddress != "203.0.113.7" || comment.UserAgent != "test-agent" {
		t.Fatalf("provenance missing: ip=%q ua=%q", comment.IPAddress, comment.UserAgent)
	}
}

func TestGate_RateLimitExceeded(t *testing.T) {
	gate := NewGate(store.NewMemory(), stubVerifier{score: 0.9}, NewRateLimiter(2, time.Hour), 0.7, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := gate.Check(ctx, &models.Comment{ID: "c"}, anonRequest()); err != nil {
			t.Fatalf("submission %d: %v", i+1, err)
		}
	}

	err := gate.Check(ctx, &models.Comment{ID: "c"}, anonRequest())
	if err == nil {
		t.Fatal("expected rate limit rejection")
	}
	if apierror.StatusOf(err) != 429 {
		t.Fatalf("status = %d, want 429", apierror.StatusOf(err))
	}
}

func TestGate_FirstTimeSubmitterQueued(t *testing.T) {
	gate := newGate(store.NewMemory(), 0.9)

	comment := &models.Comment{ID: "c1"}
	if err := gate.Check(context.Background(), comment, anonRequest()); err != nil {
		t.Fatalf("check: %v", err)
	}

	if comment.IsApproved {
		t.Fatal("first-time submitter must be queued for moderation")
	}
	if comment.IsSpam {
		t.Fatal("queued is not spam")
	}
}

func TestGate_ReturningSubmitterAutoApproved(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// A prior approved comment from the same anonymous id.
	mem.Create(ctx, &models.Comment{
		ID:          "old",
		PostID:      "post-1",
		AnonymousID: "anon_0123456789abcdef",
		IsApproved:  true,
	})

	gate := newGate(mem, 0.9)
	comment := &models.Comment{ID: "c1"}
	if err := gate.Check(ctx, comment, anonRequest()); err != nil {
		t.Fatalf("check: %v", err)
	}

	if !comment.IsApproved {
		t.Fatal("returning submitter must be auto-approved")
	}
}

func TestGate_ReturningSubmitterMatchedByIP(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// Prior approval shares only the IP, not the anonymous id.
	mem.Create(ctx, &models.Comment{
		ID:          "old",
		PostID:      "post-1",
		AnonymousID: "anon_ffffffffffffffff",
		IPAddress:   "203.0.113.7",
		IsApproved:  true,
	})

	gate := newGate(mem, 0.9)
	comment := &models.Comment{ID: "c1"}
	if err := gate.Check(ctx, comment, anonRequest()); err != nil {
		t.Fatalf("check: %v", err)
	}

	if !comment.IsApproved {
		t.Fatal("IP match must count as a returning submitter")
	}
}

func TestGate_StoreErrorFailsClosed(t *testing.T) {
	gate := newGate(failingCounts{store.NewMemory()}, 0.9)

	comment := &models.Comment{ID: "c1"}
	if err := gate.Check(context.Background(), comment, anonRequest()); err != nil {
		t.Fatalf("store errors must not surface: %v", err)
	}

	if comment.IsApproved {
		t.Fatal("store failure must queue for moderation, not approve")
	}
}

func TestGate_SpamSkipsFirstTimeCheck(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	mem.Create(ctx, &models.Comment{
		ID:          "old",
		AnonymousID: "anon_0123456789abcdef",
		IsApproved:  true,
	})

	gate := newGate(mem, 0.1)
	comment := &models.Comment{ID: "c1"}
	if err := gate.Check(ctx, comment, anonRequest()); err != nil {
		t.Fatalf("check: %v", err)
	}

	// Spam stays unapproved even though the submitter has history.
	if comment.IsApproved || !comment.IsSpam {
		t.Fatalf("flags = approved:%v spam:%v", comment.IsApproved, comment.IsSpam)
	}
}
