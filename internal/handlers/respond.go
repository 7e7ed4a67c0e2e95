package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/driftline/driftline-backend/internal/apperr"
	"github.com/driftline/driftline-backend/internal/models"
	"github.com/labstack/echo/v4"
)

// getUserIDFromContext extracts the authenticated user id set by the
// JWT middleware. Zero means unauthenticated.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return 0
	}
	return claims.UserID
}

// respondData writes the uniform success envelope
func respondData(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"success": true, "data": data})
}

// respondError maps an application error to the uniform error envelope.
// Blocked errors leave as plain not-found so block state never leaks;
// internal detail is logged server-side only.
func respondError(c echo.Context, err error) error {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Internal(err)
	}

	status := apperr.HTTPStatus(e)
	code := e.Code
	message := e.Message
	switch e.Code {
	case apperr.CodeBlocked:
		code = apperr.CodeNotFound
		message = "not found"
	case apperr.CodeInternal:
		log.Printf("%s %s: %v", c.Request().Method, c.Request().URL.Path, e)
		message = "internal error"
	}

	errBody := echo.Map{"code": code, "message": message}
	if e.Field != "" && e.Code != apperr.CodeBlocked {
		errBody["field"] = e.Field
	}
	return c.JSON(status, echo.Map{"success": false, "error": errBody})
}

func requireViewer(c echo.Context) (uint, error) {
	viewerID := getUserIDFromContext(c)
	if viewerID == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return viewerID, nil
}

// parseCursor reads the optional cursor query parameter. Absent means
// "start from the top".
func parseCursor(c echo.Context) (uint, error) {
	raw := c.QueryParam("cursor")
	if raw == "" {
		return 0, nil
	}
	id, err := parseUintParam(raw)
	if err != nil {
		return 0, apperr.Validation("cursor", "malformed cursor")
	}
	return id, nil
}
