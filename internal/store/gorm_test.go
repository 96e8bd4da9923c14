package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	pggorm "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chip902/chip-hosting-comments/internal/models"
)

// Requires Docker. Gated behind INTEGRATION_TESTS so the rest of the suite
// stays fast:
//
//	INTEGRATION_TESTS=1 go test ./internal/store/
var testDB *gorm.DB

func mustStartPostgresContainer() (func(context.Context, ...testcontainers.TerminateOption) error, string, error) {
	var (
		dbName = "comments"
		dbUser = "comments"
		dbPwd  = "comments"
	)

	ctx := context.Background()
	container, err := tcpostgres.Run(
		ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(dbName),
		tcpostgres.WithUsername(dbUser),
		tcpostgres.WithPassword(dbPwd),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, "", err
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return container.Terminate, "", err
	}
	return container.Terminate, dsn, nil
}

func TestMain(m *testing.M) {
	if os.Getenv("INTEGRATION_TESTS") == "" {
		os.Exit(m.Run())
	}

	teardown, dsn, err := mustStartPostgresContainer()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	testDB, err = gorm.Open(pggorm.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("could not connect: %v", err)
	}
	if err := testDB.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}); err != nil {
		log.Fatalf("could not migrate: %v", err)
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}
	os.Exit(code)
}

func requireDB(t *testing.T) *Gorm {
	t.Helper()
	if testDB == nil {
		t.Skip("set INTEGRATION_TESTS=1 to run store integration tests")
	}
	return NewGorm(testDB)
}

func seedTestPost(t *testing.T, s *Gorm) string {
	t.Helper()
	id := uuid.New().String()
	post := models.Post{ID: id, Title: "Post " + id[:8], Slug: "post-" + id[:8]}
	if err := testDB.Create(&post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return id
}

func seedTestComment(t *testing.T, s *Gorm, postID string, mutate func(*models.Comment)) *models.Comment {
	t.Helper()
	comment := &models.Comment{
		ID:      uuid.New().String(),
		PostID:  postID,
		Content: json.RawMessage(`"integration test comment body"`),
		Voters:  models.VoterList{},
	}
	if mutate != nil {
		mutate(comment)
	}
	if err := s.Create(context.Background(), comment); err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return comment
}

func TestGorm_CreateAndFind(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	created := seedTestComment(t, s, postID, func(c *models.Comment) {
		c.AuthorName = "Grace"
		c.AnonymousID = "anon_" + uuid.New().String()[:16]
	})

	got, err := s.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.AuthorName != "Grace" || got.PostID != postID {
		t.Fatalf("got %+v", got)
	}
}

func TestGorm_Delete(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	created := seedTestComment(t, s, postID, nil)
	ctx := context.Background()

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.FindByID(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, created.ID); err != ErrNotFound {
		t.Fatalf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestGorm_FindByID_NotFound(t *testing.T) {
	s := requireDB(t)

	_, err := s.FindByID(context.Background(), uuid.New().String())
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGorm_UpdateVoting_RoundTripsJSONB(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	created := seedTestComment(t, s, postID, nil)

	voters := models.VoterList{
		{UserID: "anon_aaaaaaaaaaaaaaaa", Vote: models.VoteUp, Timestamp: time.Now().UTC().Truncate(time.Millisecond)},
		{UserID: "anon_bbbbbbbbbbbbbbbb", Vote: models.VoteDown, Timestamp: time.Now().UTC().Truncate(time.Millisecond)},
	}
	updated, err := s.UpdateVoting(context.Background(), created.ID, VotingUpdate{
		Voters: voters,
		Votes:  models.VoteTotals{Upvotes: 1, Downvotes: 1, Score: 0},
	})
	if err != nil {
		t.Fatalf("UpdateVoting: %v", err)
	}
	if len(updated.Voters) != 2 {
		t.Fatalf("voters = %d, want 2", len(updated.Voters))
	}

	// Read back through a fresh query, not the returned struct.
	got, err := s.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Votes.Upvotes != 1 || got.Votes.Downvotes != 1 || got.Votes.Score != 0 {
		t.Fatalf("totals = %+v", got.Votes)
	}
	if i := got.Voters.Find("anon_aaaaaaaaaaaaaaaa"); i < 0 || got.Voters[i].Vote != models.VoteUp {
		t.Fatal("upvote did not survive the jsonb round trip")
	}
	if i := got.Voters.Find("anon_bbbbbbbbbbbbbbbb"); i < 0 || got.Voters[i].Vote != models.VoteDown {
		t.Fatal("downvote did not survive the jsonb round trip")
	}
}

func TestGorm_UpdateVoting_ClearsVoters(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	created := seedTestComment(t, s, postID, func(c *models.Comment) {
		c.Voters = models.VoterList{{UserID: "anon_aaaaaaaaaaaaaaaa", Vote: models.VoteUp, Timestamp: time.Now()}}
		c.Votes = models.VoteTotals{Upvotes: 1, Score: 1}
	})

	// Zero values must be written, not skipped.
	updated, err := s.UpdateVoting(context.Background(), created.ID, VotingUpdate{
		Voters: models.VoterList{},
		Votes:  models.VoteTotals{},
	})
	if err != nil {
		t.Fatalf("UpdateVoting: %v", err)
	}
	if len(updated.Voters) != 0 || updated.Votes.Upvotes != 0 || updated.Votes.Score != 0 {
		t.Fatalf("state not cleared: %+v voters=%d", updated.Votes, len(updated.Voters))
	}
}

func TestGorm_UpdateVoting_NotFound(t *testing.T) {
	s := requireDB(t)

	_, err := s.UpdateVoting(context.Background(), uuid.New().String(), VotingUpdate{})
	if err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGorm_ListForPost_FiltersUnapproved(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	approved := seedTestComment(t, s, postID, func(c *models.Comment) { c.IsApproved = true })
	seedTestComment(t, s, postID, nil) // pending

	comments, err := s.ListForPost(context.Background(), postID, false)
	if err != nil {
		t.Fatalf("ListForPost: %v", err)
	}
	if len(comments) != 1 || comments[0].ID != approved.ID {
		t.Fatalf("comments = %d, want the approved one only", len(comments))
	}

	all, err := s.ListForPost(context.Background(), postID, true)
	if err != nil {
		t.Fatalf("ListForPost(all): %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}
}

func TestGorm_CountApproved(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	anonID := "anon_" + uuid.New().String()[:16]
	ip := fmt.Sprintf("10.1.2.%d", time.Now().UnixNano()%250)

	seedTestComment(t, s, postID, func(c *models.Comment) {
		c.IsApproved = true
		c.AnonymousID = anonID
	})
	seedTestComment(t, s, postID, func(c *models.Comment) {
		c.IsApproved = true
		c.IPAddress = ip
	})
	seedTestComment(t, s, postID, func(c *models.Comment) {
		// unapproved comments never count
		c.AnonymousID = anonID
		c.IPAddress = ip
	})

	ctx := context.Background()
	cases := []struct {
		name   string
		anonID string
		ip     string
		want   int64
	}{
		{"by anonymous id", anonID, "", 1},
		{"by ip", "", ip, 1},
		{"either matches", anonID, ip, 2},
		{"no identifiers", "", "", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			count, err := s.CountApproved(ctx, tc.anonID, tc.ip)
			if err != nil {
				t.Fatalf("CountApproved: %v", err)
			}
			if count != tc.want {
				t.Fatalf("count = %d, want %d", count, tc.want)
			}
		})
	}
}

func TestGorm_SetModeration(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	created := seedTestComment(t, s, postID, nil)

	updated, err := s.SetModeration(context.Background(), created.ID, true, false)
	if err != nil {
		t.Fatalf("SetModeration: %v", err)
	}
	if !updated.IsApproved || updated.IsSpam {
		t.Fatalf("flags = approved:%v spam:%v", updated.IsApproved, updated.IsSpam)
	}

	// Flip back to unapproved; false values must persist too.
	updated, err = s.SetModeration(context.Background(), created.ID, false, true)
	if err != nil {
		t.Fatalf("SetModeration: %v", err)
	}
	if updated.IsApproved || !updated.IsSpam {
		t.Fatalf("flags = approved:%v spam:%v", updated.IsApproved, updated.IsSpam)
	}
}

func TestGorm_AdjustPostCommentCount(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.AdjustPostCommentCount(ctx, postID, 1); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	var post models.Post
	testDB.First(&post, "id = ?", postID)
	if post.CommentCount != 3 {
		t.Fatalf("count = %d, want 3", post.CommentCount)
	}

	// Clamped at zero, never negative.
	if err := s.AdjustPostCommentCount(ctx, postID, -10); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	testDB.First(&post, "id = ?", postID)
	if post.CommentCount != 0 {
		t.Fatalf("count = %d, want 0", post.CommentCount)
	}

	if err := s.AdjustPostCommentCount(ctx, uuid.New().String(), 1); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGorm_PostExists(t *testing.T) {
	s := requireDB(t)
	postID := seedTestPost(t, s)
	ctx := context.Background()

	exists, err := s.PostExists(ctx, postID)
	if err != nil || !exists {
		t.Fatalf("exists = %v, err = %v", exists, err)
	}
	exists, err = s.PostExists(ctx, uuid.New().String())
	if err != nil || exists {
		t.Fatalf("exists = %v, err = %v", exists, err)
	}
}
