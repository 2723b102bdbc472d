// Package v1_test contains tests for the API v1 handlers
package v1_test

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

	"folio/internal/analytics"
	"folio/internal/testsupport"
)

func postJSON(t *testing.T, app *fiber.App, method, path string, payload interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")

	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded), "body was not JSON: %s", string(body))
	return decoded
}

func TestRecordPageViewHandler(t *testing.T) {
	t.Run("records a page view and returns its id", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "POST", "/analytics/pageview", map[string]interface{}{
			"page":      "/articles/hello-world",
			"referrer":  "https://news.ycombinator.com",
			"sessionId": "sess-abc",
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
		viewID, _ := body["viewId"].(string)
		require.NotEmpty(t, viewID)

		var pv analytics.PageView
		require.NoError(t, db.First(&pv, "id = ?", viewID).Error)
		assert.Equal(t, "/articles/hello-world", pv.Page)
		assert.Equal(t, "sess-abc", pv.SessionID)
		assert.NotEmpty(t, pv.Device)
		assert.False(t, pv.Duration.Valid, "duration should be unset until the PUT arrives")
	})

	t.Run("rejects a page view without a page", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "POST", "/analytics/pageview", map[string]interface{}{
			"sessionId": "sess-abc",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, false, body["success"])

		var count int64
		require.NoError(t, db.Model(&analytics.PageView{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})

	t.Run("rejects a page view without a session id", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "POST", "/analytics/pageview", map[string]interface{}{
			"page": "/about",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ignores page views from a logged-in admin", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		testsupport.CreateTestUserForAuth(t, db, "admin@example.com", "correct-horse")
		app := testsupport.CreateTestApp(t, db)
		cookie := testsupport.LoginTestUser(t, app, "admin@example.com", "correct-horse")

		payload, err := json.Marshal(map[string]interface{}{
			"page":      "/articles/hello-world",
			"sessionId": "sess-admin",
		})
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/analytics/pageview", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
		req.AddCookie(&http.Cookie{Name: testsupport.SessionCookieName, Value: cookie})

		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, true, body["ignored"])

		var count int64
		require.NoError(t, db.Model(&analytics.PageView{}).Count(&count).Error)
		assert.Equal(t, int64(0), count, "admin views must not be stored")
	})

	t.Run("still tracks when the session cookie is garbage", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		payload, err := json.Marshal(map[string]interface{}{
			"page":      "/about",
			"sessionId": "sess-broken-cookie",
		})
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/analytics/pageview", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "Mozilla/5.0 Test Browser")
		req.AddCookie(&http.Cookie{Name: testsupport.SessionCookieName, Value: "not-a-real-session"})

		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])
		assert.NotEmpty(t, body["viewId"])
	})
}

func TestUpdatePageViewDurationHandler(t *testing.T) {
	t.Run("patches the duration of an existing view", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		pv := testsupport.CreateTestPageView(t, db, "/articles/hello", "sess-1", time.Now().UTC())
		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "PUT", "/analytics/pageview", map[string]interface{}{
			"viewId":   pv.ID,
			"duration": 42,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])

		var updated analytics.PageView
		require.NoError(t, db.First(&updated, "id = ?", pv.ID).Error)
		require.True(t, updated.Duration.Valid)
		assert.Equal(t, int64(42), updated.Duration.Int64)
	})

	t.Run("accepts the beacon POST form of the patch", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		pv := testsupport.CreateTestPageView(t, db, "/articles/hello", "sess-1", time.Now().UTC())
		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "POST", "/analytics/pageview/duration", map[string]interface{}{
			"viewId":   pv.ID,
			"duration": 17,
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var updated analytics.PageView
		require.NoError(t, db.First(&updated, "id = ?", pv.ID).Error)
		require.True(t, updated.Duration.Valid, "beacon delivery must persist the dwell time")
		assert.Equal(t, int64(17), updated.Duration.Int64)
	})

	t.Run("returns 404 for an unknown view id", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "PUT", "/analytics/pageview", map[string]interface{}{
			"viewId":   "00000000-0000-0000-0000-000000000000",
			"duration": 10,
		})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, false, body["success"])
	})

	t.Run("rejects a patch without a duration", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		pv := testsupport.CreateTestPageView(t, db, "/articles/hello", "sess-1", time.Now().UTC())
		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "PUT", "/analytics/pageview", map[string]interface{}{
			"viewId": pv.ID,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("rejects a negative duration", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		pv := testsupport.CreateTestPageView(t, db, "/articles/hello", "sess-1", time.Now().UTC())
		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "PUT", "/analytics/pageview", map[string]interface{}{
			"viewId":   pv.ID,
			"duration": -5,
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRecordEventHandler(t *testing.T) {
	t.Run("records a custom event with metadata", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "POST", "/analytics/event", map[string]interface{}{
			"type":      "cv_download",
			"page":      "/about",
			"sessionId": "sess-1",
			"data":      map[string]interface{}{"format": "pdf"},
		})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		assert.Equal(t, true, body["success"])

		var ev analytics.Event
		require.NoError(t, db.First(&ev, "type = ?", "cv_download").Error)
		assert.Equal(t, "/about", ev.Page)
		assert.JSONEq(t, `{"format":"pdf"}`, string(ev.Data))
	})

	t.Run("rejects an event without a type", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()
		testsupport.CleanAllTables(db)

		app := testsupport.CreateTestApp(t, db)

		resp := postJSON(t, app, "POST", "/analytics/event", map[string]interface{}{
			"page":      "/about",
			"sessionId": "sess-1",
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var count int64
		require.NoError(t, db.Model(&analytics.Event{}).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	})
}

func TestGetSDKAction(t *testing.T) {
	t.Run("serves the tracker with an ETag", func(t *testing.T) {
		dbManager, _ := testsupport.SetupTestDBManager(t)
		db := dbManager.GetConnection()

		app := testsupport.CreateTestApp(t, db)

		req := httptest.NewRequest("GET", "/analytics/sdk.js", nil)
		resp, err := app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))

		etag := resp.Header.Get("ETag")
		require.NotEmpty(t, etag)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "folio")
		// The beacon goes first, against the POST duration route; the
		// keepalive PUT is the fallback.
		assert.Contains(t, string(body), "sendBeacon")
		assert.Contains(t, string(body), "/analytics/pageview/duration")

		req = httptest.NewRequest("GET", "/analytics/sdk.js", nil)
		req.Header.Set("If-None-Match", etag)
		resp, err = app.Test(req, 30000)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotModified, resp.StatusCode)
	})
}
