package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitedock/sitedock"
	"github.com/sitedock/sitedock/database/sqlite"
)

func newUser(username string) sitedock.User {
	return sitedock.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: "$2a$10$hash",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUserRepo_CreateAndGet(t *testing.T) {
	repo := sqlite.NewUserRepo(setupDB(t))
	ctx := context.Background()

	user := newUser("alice")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.Get(ctx, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)
}

func TestUserRepo_Create_DuplicateUsername(t *testing.T) {
	repo := sqlite.NewUserRepo(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("alice")))

	err := repo.Create(ctx, newUser("alice"))
	assert.ErrorIs(t, err, sitedock.ErrAlreadyExists)
}

func TestUserRepo_GetByUsername(t *testing.T) {
	repo := sqlite.NewUserRepo(setupDB(t))
	ctx := context.Background()

	user := newUser("alice")
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByUsername(ctx, "alice")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, sitedock.ErrNotFound)
}

func TestUserRepo_Update(t *testing.T) {
	repo := sqlite.NewUserRepo(setupDB(t))
	ctx := context.Background()

	user := newUser("alice")
	require.NoError(t, repo.Create(ctx, user))

	user.PasswordHash = "$2a$10$newhash"
	require.NoError(t, repo.Update(ctx, user))

	got, err := repo.Get(ctx, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "$2a$10$newhash", got.PasswordHash)
}

func TestUserRepo_Update_DuplicateUsername(t *testing.T) {
	repo := sqlite.NewUserRepo(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("alice")))
	bob := newUser("bob")
	require.NoError(t, repo.Create(ctx, bob))

	bob.Username = "alice"
	err := repo.Update(ctx, bob)
	assert.ErrorIs(t, err, sitedock.ErrAlreadyExists)
}

func TestUserRepo_Delete(t *testing.T) {
	repo := sqlite.NewUserRepo(setupDB(t))
	ctx := context.Background()

	user := newUser("alice")
	require.NoError(t, repo.Create(ctx, user))

	require.NoError(t, repo.Delete(ctx, user.ID))

	_, err := repo.Get(ctx, user.ID)
	assert.ErrorIs(t, err, sitedock.ErrNotFound)

	err = repo.Delete(ctx, user.ID)
	assert.ErrorIs(t, err, sitedock.ErrNotFound)
}

func TestUserRepo_ListAll(t *testing.T) {
	repo := sqlite.NewUserRepo(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newUser("alice")))
	require.NoError(t, repo.Create(ctx, newUser("bob")))

	users, err := repo.ListAll(ctx)
	assert.NoError(t, err)
	assert.Len(t, users, 2)
}
