package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pledgekit/patronage/common/logger"
	"github.com/pledgekit/patronage/common/patron"
)

// PatronReader is the read-only slice of the store the query endpoint needs.
type PatronReader interface {
	Load(ctx context.Context) (patron.Mapping, error)
}

// PatronHandler serves patron status queries.
type PatronHandler struct {
	store PatronReader
	log   *logger.Logger
}

// NewPatronHandler creates a new patron handler
func NewPatronHandler(store PatronReader, log *logger.Logger) *PatronHandler {
	return &PatronHandler{store: store, log: log}
}

// patronStatus is the query endpoint's response body.
type patronStatus struct {
	Username string `json:"username"`
	IsPatron bool   `json:"is_patron"`
	FullName string `json:"full_name"`
	UserID   string `json:"user_id"`
}

// Check reports whether a username belongs to an active patron. An unknown
// username is a normal answer, never an error.
// GET /check_patron/:username
func (h *PatronHandler) Check(c echo.Context) error {
	username := c.Param("username")

	m, err := h.store.Load(c.Request().Context())
	if err != nil {
		h.log.Error("failed to load patron mapping", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "patron store unavailable",
		})
	}

	rec, ok := m[username]
	if !ok {
		return c.JSON(http.StatusOK, patronStatus{Username: username})
	}

	return c.JSON(http.StatusOK, patronStatus{
		Username: username,
		IsPatron: true,
		FullName: rec.FullName,
		UserID:   rec.UserID,
	})
}
