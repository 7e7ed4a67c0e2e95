package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/feed"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGetContext(t *testing.T, target string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestParseCursor(t *testing.T) {
	c, _ := newGetContext(t, "/feed?cursor=42")
	id, err := parseCursor(c)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	c, _ = newGetContext(t, "/feed")
	id, err = parseCursor(c)
	require.NoError(t, err)
	assert.Zero(t, id, "absent cursor starts from the top")

	c, _ = newGetContext(t, "/feed?cursor=abc")
	_, err = parseCursor(c)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	c, _ = newGetContext(t, "/feed?cursor=-1")
	_, err = parseCursor(c)
	require.Error(t, err)
}

func TestFeedMode(t *testing.T) {
	c, _ := newGetContext(t, "/feed")
	mode, err := feedMode(c)
	require.NoError(t, err)
	assert.Equal(t, feed.ModeOld, mode)

	c, _ = newGetContext(t, "/feed?type=new")
	mode, err = feedMode(c)
	require.NoError(t, err)
	assert.Equal(t, feed.ModeNew, mode)

	c, _ = newGetContext(t, "/feed?type=sideways")
	_, err = feedMode(c)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestRespondErrorValidation(t *testing.T) {
	c, rec := newGetContext(t, "/feed")
	require.NoError(t, respondError(c, apperr.Validation("cursor", "malformed cursor")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errBody["code"])
	assert.Equal(t, "cursor", errBody["field"])
}

func TestRespondErrorBlockedLooksLikeNotFound(t *testing.T) {
	cBlocked, recBlocked := newGetContext(t, "/users/alice/feed")
	require.NoError(t, respondError(cBlocked, apperr.Blocked()))

	cMissing, recMissing := newGetContext(t, "/users/alice/feed")
	require.NoError(t, respondError(cMissing, apperr.NotFound("not found")))

	// A blocked caller must get a byte-identical answer to a missing
	// resource.
	assert.Equal(t, http.StatusNotFound, recBlocked.Code)
	assert.Equal(t, recMissing.Code, recBlocked.Code)
	assert.JSONEq(t, recMissing.Body.String(), recBlocked.Body.String())
}

func TestRespondErrorInternalHidesDetail(t *testing.T) {
	c, rec := newGetContext(t, "/feed")
	require.NoError(t, respondError(c, apperr.Internal(errors.New("pq: connection refused"))))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	errBody := body["error"].(map[string]interface{})
	assert.Equal(t, "INTERNAL_ERROR", errBody["code"])
	assert.Equal(t, "internal error", errBody["message"])
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRespondErrorWrapsUnknownErrors(t *testing.T) {
	c, rec := newGetContext(t, "/feed")
	require.NoError(t, respondError(c, errors.New("plain failure")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetUserIDFromContext(t *testing.T) {
	c, _ := newGetContext(t, "/feed")
	assert.Zero(t, getUserIDFromContext(c))

	c.Set("user", &models.JwtCustomClaims{UserID: 7})
	assert.Equal(t, uint(7), getUserIDFromContext(c))

	_, err := requireViewer(c)
	require.NoError(t, err)
}
