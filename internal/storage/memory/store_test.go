package memory

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	campaignentity "github.com/ovaphlow/pitchfork/service-campaign-go/internal/campaign/entity"
	userentity "github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/repo"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := New()
	users := s.Users()

	require.NoError(t, users.Create(ctx, &userentity.User{ID: "u1", Email: "ada@example.com"}))
	assert.ErrorIs(t, users.Create(ctx, &userentity.User{ID: "u2", Email: "ada@example.com"}), userrepo.ErrEmailTaken)

	u, err := users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, []string{}, u.Campaigns)

	_, err = users.GetByID(ctx, "u2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	u.Email = "mutated@example.com"
	again, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", again.Email, "callers must get copies")
}

func TestCampaigns(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Users().Create(ctx, &userentity.User{ID: "u1", Email: "ada@example.com"}))
	camps := s.Campaigns()

	for _, id := range []string{"c1", "c2", "c3"} {
		creator := "u1"
		if id == "c2" {
			creator = "u2"
		}
		require.NoError(t, camps.Create(ctx, &campaignentity.Campaign{ID: id, Creator: creator, CampaignName: id}))
	}

	u, err := s.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c3"}, u.Campaigns)

	mine, err := camps.ListByCreator(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c3", mine[1].ID)

	created := time.Now()
	require.NoError(t, camps.Update(ctx, &campaignentity.Campaign{ID: "c1", CampaignName: "renamed", Creator: "u9", CreatedAt: created}))
	c1, err := camps.GetByID(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", c1.CampaignName)
	assert.Equal(t, "u1", c1.Creator, "creator is immutable")
	assert.True(t, c1.CreatedAt.IsZero(), "created_at is immutable")

	assert.ErrorIs(t, camps.Update(ctx, &campaignentity.Campaign{ID: "nope"}), sql.ErrNoRows)

	gone, err := camps.Delete(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", gone.CampaignName)
	_, err = camps.Delete(ctx, "c1")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	all, err := camps.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c2", all[0].ID)

	u, err = s.Users().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c3"}, u.Campaigns)
}

func TestRevoked(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	r := s.Revoked()

	require.NoError(t, r.Revoke(ctx, "live", "u1", now.Add(time.Hour)))
	require.NoError(t, r.Revoke(ctx, "stale", "u1", now.Add(-time.Minute)))

	ok, err := r.IsRevoked(ctx, "live")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = r.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := r.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Len(t, s.revoked, 1)
}

func TestConcurrentSignupsSameEmail(t *testing.T) {
	ctx := context.Background()
	users := New().Users()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- users.Create(ctx, &userentity.User{ID: string(rune('a' + i)), Email: "race@example.com"})
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, userrepo.ErrEmailTaken)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	assert.ErrorIs(t, s.Ping(ctx), context.Canceled)
	_, err := s.Users().GetByID(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}
