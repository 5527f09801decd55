package watchlist

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanatinart02/next-stock-tracker-app/internal/database"
	"github.com/chanatinart02/next-stock-tracker-app/internal/modules/users"
)

func testRepo(t *testing.T) (*Repository, *users.Repository) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return NewRepository(db.Conn(), zerolog.Nop()), users.NewRepository(db.Conn(), zerolog.Nop())
}

func createUser(t *testing.T, repo *users.Repository, email string) string {
	t.Helper()

	user := &users.User{Email: email, Name: "Test User"}
	require.NoError(t, repo.Create(user))
	return user.ID
}

func TestAddAndList(t *testing.T) {
	repo, userRepo := testRepo(t)
	userID := createUser(t, userRepo, "ada@example.com")

	require.NoError(t, repo.Add(userID, "AAPL", "Apple Inc"))
	require.NoError(t, repo.Add(userID, "TSLA", "Tesla Inc"))

	items, err := repo.List(userID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	var symbols []string
	for _, item := range items {
		symbols = append(symbols, item.Symbol)
		assert.Equal(t, userID, item.UserID)
		assert.False(t, item.AddedAt.IsZero())
	}
	assert.ElementsMatch(t, []string{"AAPL", "TSLA"}, symbols)
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	repo, userRepo := testRepo(t)
	userID := createUser(t, userRepo, "ada@example.com")

	require.NoError(t, repo.Add(userID, "AAPL", "Apple Inc"))
	require.NoError(t, repo.Add(userID, "AAPL", "Apple Inc"))

	items, err := repo.List(userID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRemove(t *testing.T) {
	repo, userRepo := testRepo(t)
	userID := createUser(t, userRepo, "ada@example.com")

	require.NoError(t, repo.Add(userID, "AAPL", "Apple Inc"))
	require.NoError(t, repo.Remove(userID, "AAPL"))

	items, err := repo.List(userID)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Removing a symbol that is not present is fine
	require.NoError(t, repo.Remove(userID, "TSLA"))
}

func TestSymbolsForUser(t *testing.T) {
	repo, userRepo := testRepo(t)
	adaID := createUser(t, userRepo, "ada@example.com")
	bobID := createUser(t, userRepo, "bob@example.com")

	require.NoError(t, repo.Add(adaID, "TSLA", "Tesla Inc"))
	require.NoError(t, repo.Add(adaID, "AAPL", "Apple Inc"))
	require.NoError(t, repo.Add(bobID, "NVDA", "NVIDIA Corp"))

	symbols, err := repo.SymbolsForUser("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "TSLA"}, symbols)

	symbols, err = repo.SymbolsForUser("nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, symbols)

	symbols, err = repo.SymbolsForUser("")
	require.NoError(t, err)
	assert.Empty(t, symbols)
}
