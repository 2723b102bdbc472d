// Package testsupport provides shared fixtures for folio's tests.
package testsupport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"folio/internal"
	"folio/internal/analytics"
	"folio/internal/config"
	"folio/internal/content"
	"folio/internal/database"
	"folio/internal/users"
)

// SessionCookieName matches the cookie configured in routes.go:
// cfg.AppName + "_session".
const SessionCookieName = "folio_session"

// testDBCache caches test databases by root test name so setup helpers and
// subtests share one database.
var (
	testDBCache   = make(map[string]*gorm.DB)
	testDBCacheMu sync.Mutex
)

// TestDBManager adapts cartridge's test DB manager to folio's interface.
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{TestDBManager: ctestsupport.NewTestDBManager(db)}
}

var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a named shared in-memory database with every folio
// model migrated. Repeated calls within the same test return the same
// database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	rootName := t.Name()
	if idx := strings.Index(rootName, "/"); idx > 0 {
		rootName = rootName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SetupTestDBManager creates a test DB manager plus a quiet logger.
func SetupTestDBManager(t *testing.T) (*TestDBManager, *slog.Logger) {
	t.Helper()

	cfg := config.GetConfig()
	cfg.Environment = config.Test

	return NewTestDBManager(SetupTestDB(t)), GetLogger()
}

// GetLogger returns a logger that only surfaces errors.
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// CleanAllTables clears all non-system tables in the database.
func CleanAllTables(db *gorm.DB) {
	var tableNames []string
	db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tableNames)

	db.Exec("PRAGMA foreign_keys = OFF")
	defer db.Exec("PRAGMA foreign_keys = ON")

	db.Transaction(func(tx *gorm.DB) error {
		for _, table := range tableNames {
			tx.Exec("DELETE FROM " + table)
			tx.Exec("DELETE FROM sqlite_sequence WHERE name=?", table)
		}
		return nil
	})
}

// CreateTestPageView inserts a page view with sensible defaults.
func CreateTestPageView(t *testing.T, db *gorm.DB, page, sessionID string, timestamp time.Time) analytics.PageView {
	t.Helper()

	pv := analytics.PageView{
		Page:      page,
		UserAgent: "Mozilla/5.0 Test Browser",
		Device:    analytics.DeviceDesktop,
		OS:        analytics.OSLinux,
		Country:   analytics.UnknownGeo,
		City:      analytics.UnknownGeo,
		SessionID: sessionID,
		Timestamp: timestamp,
	}
	require.NoError(t, db.Create(&pv).Error)
	return pv
}

// CreateTestEvent inserts a custom event with sensible defaults.
func CreateTestEvent(t *testing.T, db *gorm.DB, eventType, page, sessionID string, timestamp time.Time) analytics.Event {
	t.Helper()

	ev := analytics.Event{
		Type:      eventType,
		Page:      page,
		Data:      []byte(`{}`),
		SessionID: sessionID,
		Timestamp: timestamp,
	}
	require.NoError(t, db.Create(&ev).Error)
	return ev
}

// CreateTestArticle inserts an article with a view count.
func CreateTestArticle(t *testing.T, db *gorm.DB, slug, title string, views int) content.Article {
	t.Helper()

	article := content.Article{Slug: slug, Title: title, Locale: "en", Views: views}
	require.NoError(t, db.Create(&article).Error)
	return article
}

// CreateTestUserForAuth creates a user with a properly hashed password.
func CreateTestUserForAuth(t *testing.T, db *gorm.DB, email, password string) *users.User {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &users.User{
		Email:             email,
		EncryptedPassword: string(hashedPassword),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestApp builds a fiber app with all folio routes mounted against the
// given database.
func CreateTestApp(t *testing.T, db *gorm.DB) *fiber.App {
	t.Helper()

	appConfig := config.GetConfig()
	appConfig.Environment = config.Test

	cfg := cartridge.DefaultServerConfig()
	cfg.Config = appConfig
	cfg.Logger = GetLogger()
	cfg.DBManager = NewTestDBManager(db)

	srv, err := cartridge.NewServer(cfg)
	require.NoError(t, err)

	internal.MountAppRoutes(srv)
	return srv.App()
}

// LoginTestUser logs in through the JSON endpoint and returns the session
// cookie value.
func LoginTestUser(t *testing.T, app *fiber.App, email, password string) string {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/admin/api/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")

	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName {
			return cookie.Value
		}
	}
	t.Fatalf("testsupport: login response carried no %s cookie", SessionCookieName)
	return ""
}
