package services

import (
	"fmt"
	"strings"
	"testing"

	"refsync/internal/database"
	"refsync/internal/models"
	"refsync/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Username: "tester", Email: "tester@example.com"}
	require.NoError(t, user.SetPassword("secret"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestAccount(t *testing.T, db *gorm.DB, userID uint, provider models.ServiceProvider) *models.ReferenceManagerAccount {
	t.Helper()
	account := &models.ReferenceManagerAccount{
		UserID:        userID,
		Provider:      provider,
		APIKey:        "test-key",
		LibraryID:     "12345",
		DailyAPILimit: 1000,
		IsActive:      true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func createTestProfile(t *testing.T, db *gorm.DB, userID uint, direction models.SyncDirection, policy models.ConflictPolicy, accounts ...*models.ReferenceManagerAccount) *models.SyncProfile {
	t.Helper()
	profile := &models.SyncProfile{
		UserID:         userID,
		Name:           "test profile",
		SyncDirection:  direction,
		ConflictPolicy: policy,
	}
	require.NoError(t, db.Create(profile).Error)
	repo := repository.NewSyncProfileRepository(db)
	for _, account := range accounts {
		require.NoError(t, repo.LinkAccount(profile.ID, account.ID))
	}
	loaded, err := repo.GetByID(profile.ID)
	require.NoError(t, err)
	return loaded
}

func createTestReference(t *testing.T, db *gorm.DB, userID uint, title string, authors []string) *models.Reference {
	t.Helper()
	repo := repository.NewReferenceRepository(db)
	ref := &models.Reference{
		Title:         title,
		ReferenceType: "journal_article",
		SavedByID:     userID,
	}
	require.NoError(t, repo.Create(ref))
	if len(authors) > 0 {
		require.NoError(t, repo.LinkAuthors(ref.ID, authors))
	}
	loaded, err := repo.GetByID(ref.ID)
	require.NoError(t, err)
	return loaded
}
