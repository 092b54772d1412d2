package repository

import (
	"fmt"
	"strings"
	"testing"

	"refsync/internal/database"
	"refsync/internal/models"

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

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Username: "tester", Email: "tester@example.com"}
	require.NoError(t, user.SetPassword("secret"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedAccount(t *testing.T, db *gorm.DB, userID uint) *models.ReferenceManagerAccount {
	t.Helper()
	account := &models.ReferenceManagerAccount{
		UserID:        userID,
		Provider:      models.ProviderZotero,
		APIKey:        "test-key",
		LibraryID:     "12345",
		DailyAPILimit: 1000,
		IsActive:      true,
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

func seedReference(t *testing.T, db *gorm.DB, userID uint, title string) *models.Reference {
	t.Helper()
	ref := &models.Reference{
		Title:         title,
		ReferenceType: "journal_article",
		SavedByID:     userID,
	}
	require.NoError(t, db.Create(ref).Error)
	return ref
}
