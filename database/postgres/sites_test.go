package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedock/sitedock"
)

func siteAt(owner uuid.UUID, name string, createdAt time.Time) sitedock.Site {
	return sitedock.Site{
		ID:          uuid.New(),
		OwnerID:     owner,
		Name:        name,
		Description: "Uploaded site",
		CreatedAt:   createdAt,
	}
}

func TestSiteRepo_CreateAndGet(t *testing.T) {
	repo, _ := setupRepos(t)
	ctx := context.Background()

	site := siteAt(uuid.New(), "blog", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, site))

	got, err := repo.Get(ctx, site.ID)
	assert.NoError(t, err)
	assert.Equal(t, site.ID, got.ID)
	assert.Equal(t, site.OwnerID, got.OwnerID)
	assert.Equal(t, site.Name, got.Name)
	assert.Nil(t, got.Domain)
	assert.WithinDuration(t, site.CreatedAt, got.CreatedAt, time.Millisecond)
}

func TestSiteRepo_Create_DuplicateID(t *testing.T) {
	repo, _ := setupRepos(t)
	ctx := context.Background()

	site := siteAt(uuid.New(), "blog", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, site))

	err := repo.Create(ctx, site)
	assert.ErrorIs(t, err, sitedock.ErrAlreadyExists)
}

func TestSiteRepo_Get_NotFound(t *testing.T) {
	repo, _ := setupRepos(t)

	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sitedock.ErrNotFound)
}

func TestSiteRepo_GetLatestByName(t *testing.T) {
	repo, _ := setupRepos(t)
	ctx := context.Background()
	owner := uuid.New()

	base := time.Now().UTC().Truncate(time.Second)
	old := siteAt(owner, "blog", base)
	newest := siteAt(owner, "blog", base.Add(time.Minute))
	other := siteAt(owner, "docs", base.Add(time.Hour))

	for _, s := range []sitedock.Site{newest, old, other} {
		require.NoError(t, repo.Create(ctx, s))
	}

	got, err := repo.GetLatestByName(ctx, "blog")
	assert.NoError(t, err)
	assert.Equal(t, newest.ID, got.ID)

	_, err = repo.GetLatestByName(ctx, "missing")
	assert.ErrorIs(t, err, sitedock.ErrNotFound)
}

func TestSiteRepo_GetAllByName_NewestFirst(t *testing.T) {
	repo, _ := setupRepos(t)
	ctx := context.Background()
	owner := uuid.New()

	base := time.Now().UTC().Truncate(time.Second)
	v1 := siteAt(owner, "blog", base)
	v2 := siteAt(owner, "blog", base.Add(time.Minute))

	require.NoError(t, repo.Create(ctx, v2))
	require.NoError(t, repo.Create(ctx, v1))

	got, err := repo.GetAllByName(ctx, "blog")
	assert.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, v2.ID, got[0].ID)
	assert.Equal(t, v1.ID, got[1].ID)
}

func TestSiteRepo_Update(t *testing.T) {
	repo, _ := setupRepos(t)
	ctx := context.Background()

	site := siteAt(uuid.New(), "blog", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, site))

	domain := "blog.example.com"
	site.Name = "journal"
	site.Domain = &domain
	require.NoError(t, repo.Update(ctx, site))

	got, err := repo.Get(ctx, site.ID)
	assert.NoError(t, err)
	assert.Equal(t, "journal", got.Name)
	require.NotNil(t, got.Domain)
	assert.Equal(t, domain, *got.Domain)

	missing := siteAt(uuid.New(), "ghost", time.Now().UTC())
	assert.ErrorIs(t, repo.Update(ctx, missing), sitedock.ErrNotFound)
}

func TestSiteRepo_Delete(t *testing.T) {
	repo, _ := setupRepos(t)
	ctx := context.Background()

	site := siteAt(uuid.New(), "blog", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, site))

	require.NoError(t, repo.Delete(ctx, site.ID))
	_, err := repo.Get(ctx, site.ID)
	assert.ErrorIs(t, err, sitedock.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, site.ID), sitedock.ErrNotFound)
}

func TestSiteRepo_ListByOwner_NewestFirst(t *testing.T) {
	repo, _ := setupRepos(t)
	ctx := context.Background()
	alice := uuid.New()
	bob := uuid.New()

	base := time.Now().UTC().Truncate(time.Second)
	a1 := siteAt(alice, "blog", base)
	a2 := siteAt(alice, "docs", base.Add(time.Minute))
	b1 := siteAt(bob, "forum", base.Add(2*time.Minute))

	for _, s := range []sitedock.Site{a1, b1, a2} {
		require.NoError(t, repo.Create(ctx, s))
	}

	got, err := repo.ListByOwner(ctx, alice)
	assert.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a2.ID, got[0].ID)
	assert.Equal(t, a1.ID, got[1].ID)
}

func TestUserRepo_Roundtrip(t *testing.T) {
	_, repo := setupRepos(t)
	ctx := context.Background()

	user := sitedock.User{
		ID:           uuid.New(),
		Username:     "alice",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByUsername(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	dup := user
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(ctx, dup), sitedock.ErrAlreadyExists)

	dup.Username = "bob"
	require.NoError(t, repo.Create(ctx, dup))
	dup.Username = "alice"
	assert.ErrorIs(t, repo.Update(ctx, dup), sitedock.ErrAlreadyExists)

	require.NoError(t, repo.Delete(ctx, user.ID))
	_, err = repo.Get(ctx, user.ID)
	assert.ErrorIs(t, err, sitedock.ErrNotFound)
}
