package accounts

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Marlon-Urena/userAccountService/pkg/db"
	"github.com/Marlon-Urena/userAccountService/pkg/db/models"
	"github.com/Marlon-Urena/userAccountService/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, conn.AutoMigrate(&models.Account{}))

	t.Cleanup(func() {
		sqlDB, err := conn.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	})

	return conn
}

func testAccount(n int) *models.Account {
	return &models.Account{
		SubjectID: fmt.Sprintf("subject-%d", n),
		Email:     fmt.Sprintf("user%d@example.com", n),
		Username:  fmt.Sprintf("user%d", n),
		Status:    models.StatusOffline,
	}
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, testAccount(1))
	require.NoError(t, err)
	require.Equal(t, "subject-1", created.SubjectID)

	found, err := repo.FindBySubjectID(ctx, "subject-1")
	require.NoError(t, err)
	require.Equal(t, "user1@example.com", found.Email)
	require.Equal(t, "user1", found.Username)
	require.False(t, found.CreatedAt.IsZero())
}

func TestRepositoryFindMissing(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	_, err := repo.FindBySubjectID(context.Background(), "ghost")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUniqueEmailViolation(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, testAccount(1))
	require.NoError(t, err)

	dup := testAccount(2)
	dup.Email = "user1@example.com"
	_, err = repo.Create(ctx, dup)
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, ""), "expected unique violation, got %v", err)
	require.True(t, db.IsUniqueViolation(err, "email"), "expected the email index name in %v", err)
}

func TestRepositoryUniqueUsernameViolation(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, testAccount(1))
	require.NoError(t, err)

	dup := testAccount(2)
	dup.Username = "user1"
	_, err = repo.Create(ctx, dup)
	require.Error(t, err)
	require.True(t, db.IsUniqueViolation(err, ""), "expected unique violation, got %v", err)
}

func TestRepositoryUpdate(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	account, err := repo.Create(ctx, testAccount(1))
	require.NoError(t, err)

	account.Email = "renamed@example.com"
	_, err = repo.Update(ctx, account)
	require.NoError(t, err)

	found, err := repo.FindBySubjectID(ctx, "subject-1")
	require.NoError(t, err)
	require.Equal(t, "renamed@example.com", found.Email)
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, testAccount(1))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "subject-1"))

	_, err = repo.FindBySubjectID(ctx, "subject-1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryExists(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, testAccount(1))
	require.NoError(t, err)

	taken, err := repo.ExistsByEmail(ctx, "user1@example.com")
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.ExistsByEmail(ctx, "free@example.com")
	require.NoError(t, err)
	require.False(t, taken)

	taken, err = repo.ExistsByUsername(ctx, "user1")
	require.NoError(t, err)
	require.True(t, taken)

	taken, err = repo.ExistsByUsername(ctx, "free")
	require.NoError(t, err)
	require.False(t, taken)
}

func TestRepositorySearch(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	for _, username := range []string{"carol", "alice", "bob", "alicia"} {
		account := &models.Account{
			SubjectID: "subject-" + username,
			Email:     username + "@example.com",
			Username:  username,
			Status:    models.StatusOffline,
		}
		_, err := repo.Create(ctx, account)
		require.NoError(t, err)
	}

	all, err := repo.Search(ctx, "", pagination.Page{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, "alice", all[0].Username)
	require.Equal(t, "alicia", all[1].Username)
	require.Equal(t, "bob", all[2].Username)
	require.Equal(t, "carol", all[3].Username)

	matched, err := repo.Search(ctx, "ALI", pagination.Page{})
	require.NoError(t, err)
	require.Len(t, matched, 2)

	paged, err := repo.Search(ctx, "", pagination.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, paged, 2)
	require.Equal(t, "bob", paged[0].Username)
}
