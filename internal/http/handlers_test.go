package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/content"
	"folio/internal/testsupport"
)

func jsonRequest(t *testing.T, app *fiber.App, method, path string, payload interface{}, cookie string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: testsupport.SessionCookieName, Value: cookie})
	}

	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded), "body was not JSON: %s", string(body))
	return decoded
}

func TestProcessLoginAction(t *testing.T) {
	t.Run("logs in with valid credentials and sets the session cookie", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		testsupport.CreateTestUserForAuth(t, db, "admin@example.com", "correct-horse")
		app := testsupport.CreateTestApp(t, db)

		cookie := testsupport.LoginTestUser(t, app, "admin@example.com", "correct-horse")
		assert.NotEmpty(t, cookie)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		testsupport.CreateTestUserForAuth(t, db, "admin@example.com", "correct-horse")
		app := testsupport.CreateTestApp(t, db)

		resp := jsonRequest(t, app, "POST", "/admin/api/login", map[string]string{
			"email":    "admin@example.com",
			"password": "wrong-horse",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decodeJSON(t, resp)
		assert.Equal(t, "invalid credentials", body["error"])
	})

	t.Run("answers unknown accounts identically to bad passwords", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := jsonRequest(t, app, "POST", "/admin/api/login", map[string]string{
			"email":    "ghost@example.com",
			"password": "whatever",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decodeJSON(t, resp)
		assert.Equal(t, "invalid credentials", body["error"])
	})
}

func TestLogoutAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	testsupport.CreateTestUserForAuth(t, db, "admin@example.com", "correct-horse")
	app := testsupport.CreateTestApp(t, db)
	cookie := testsupport.LoginTestUser(t, app, "admin@example.com", "correct-horse")

	resp := jsonRequest(t, app, "POST", "/admin/api/logout", nil, cookie)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON(t, resp)
	assert.Equal(t, true, body["success"])
}

func TestContentActions(t *testing.T) {
	t.Run("lists articles", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		testsupport.CreateTestArticle(t, db, "go-generics", "Go Generics", 3)
		app := testsupport.CreateTestApp(t, db)

		resp := jsonRequest(t, app, "GET", "/api/articles", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeJSON(t, resp)
		articles, ok := body["articles"].([]interface{})
		require.True(t, ok)
		require.Len(t, articles, 1)
	})

	t.Run("read counter increments article views", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		testsupport.CreateTestArticle(t, db, "go-generics", "Go Generics", 3)
		app := testsupport.CreateTestApp(t, db)

		resp := jsonRequest(t, app, "POST", "/api/articles/go-generics/read", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var article content.Article
		require.NoError(t, db.First(&article, "slug = ?", "go-generics").Error)
		assert.Equal(t, 4, article.Views)
	})

	t.Run("read counter is best effort for unknown slugs", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := jsonRequest(t, app, "POST", "/api/articles/no-such-article/read", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestStatsIndexAction(t *testing.T) {
	t.Run("requires an admin session", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := jsonRequest(t, app, "GET", "/admin/api/stats", nil, "")
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("returns zero-filled stats over the requested window", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		now := time.Now().UTC()
		testsupport.CreateTestPageView(t, db, "/articles/go-generics", "s1", now.Add(-1*time.Hour))
		testsupport.CreateTestPageView(t, db, "/articles/go-generics", "s2", now.Add(-2*time.Hour))
		testsupport.CreateTestPageView(t, db, "/about", "s1", now.Add(-3*time.Hour))
		testsupport.CreateTestEvent(t, db, "cv_download", "/about", "s1", now.Add(-1*time.Hour))
		testsupport.CreateTestArticle(t, db, "go-generics", "Go Generics", 12)

		testsupport.CreateTestUserForAuth(t, db, "admin@example.com", "correct-horse")
		app := testsupport.CreateTestApp(t, db)
		cookie := testsupport.LoginTestUser(t, app, "admin@example.com", "correct-horse")

		resp := jsonRequest(t, app, "GET", "/admin/api/stats?days=7", nil, cookie)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeJSON(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(7), body["windowDays"])

		daily, ok := body["dailyStats"].([]interface{})
		require.True(t, ok)
		assert.Len(t, daily, 7, "one entry per day in the window")

		topPages, ok := body["topPages"].([]interface{})
		require.True(t, ok)
		require.NotEmpty(t, topPages)
		first := topPages[0].(map[string]interface{})
		assert.Equal(t, "/articles/go-generics", first["page"])
		assert.Equal(t, "Go Generics", first["label"])
		assert.Equal(t, float64(2), first["views"])

		totals, ok := body["totals"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(3), totals["totalViews"])
		assert.Equal(t, float64(2), totals["uniqueVisitors"])
		assert.Equal(t, float64(1), totals["totalEvents"])

		external, ok := body["external"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, false, external["configured"])
		assert.Nil(t, external["summary"])
	})

	t.Run("rejects an oversized window", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		testsupport.CreateTestUserForAuth(t, db, "admin@example.com", "correct-horse")
		app := testsupport.CreateTestApp(t, db)
		cookie := testsupport.LoginTestUser(t, app, "admin@example.com", "correct-horse")

		resp := jsonRequest(t, app, "GET", "/admin/api/stats?days=100000", nil, cookie)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
