package users

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanatinart02/next-stock-tracker-app/internal/database"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return NewRepository(db.Conn(), zerolog.Nop())
}

func TestCreateAndGetByEmail(t *testing.T) {
	repo := testRepo(t)

	user := &User{
		Email:             "ada@example.com",
		Name:              "Ada",
		Country:           "UK",
		InvestmentGoals:   "Growth",
		RiskTolerance:     "Medium",
		PreferredIndustry: "Technology",
	}
	require.NoError(t, repo.Create(user))
	assert.NotEmpty(t, user.ID, "Create fills a missing ID")
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByEmail("ada@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, "Technology", got.PreferredIndustry)
}

func TestGetByEmailUnknown(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.GetByEmail("nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	repo := testRepo(t)

	require.NoError(t, repo.Create(&User{Email: "ada@example.com", Name: "Ada"}))
	assert.Error(t, repo.Create(&User{Email: "ada@example.com", Name: "Other Ada"}))
}

func TestListForDigest(t *testing.T) {
	repo := testRepo(t)

	require.NoError(t, repo.Create(&User{Email: "ada@example.com", Name: "Ada"}))
	require.NoError(t, repo.Create(&User{Email: "bob@example.com", Name: "Bob"}))
	require.NoError(t, repo.Create(&User{Email: "anon@example.com", Name: ""}))

	got, err := repo.ListForDigest()
	require.NoError(t, err)

	require.Len(t, got, 2, "users without a name are excluded")

	emails := []string{got[0].Email, got[1].Email}
	assert.ElementsMatch(t, []string{"ada@example.com", "bob@example.com"}, emails)
	assert.NotEmpty(t, got[0].ID)
}

func TestListForDigestEmpty(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.ListForDigest()
	require.NoError(t, err)
	assert.Empty(t, got)
}
