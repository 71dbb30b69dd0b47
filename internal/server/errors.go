package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avacatalog/internal/catalog"
	"github.com/vyrodovalexey/avacatalog/internal/upstream"
)

// Client-facing error messages.
const (
	MsgFetchFailed      = "Failed to fetch product data"
	MsgSortFailed       = "Sorting error occurred"
	MsgInternal         = "Internal server error"
	MsgMethodNotAllowed = "Method not allowed"
	MsgNotFound         = "Not found"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps a handler error to its status code and message.
// Parameter errors carry their own message; server errors get a generic one.
func statusForError(err error) (int, string) {
	var paramErr *catalog.ParameterError
	switch {
	case errors.As(err, &paramErr):
		return http.StatusBadRequest, paramErr.Message
	case errors.Is(err, upstream.ErrFetchFailed):
		return http.StatusInternalServerError, MsgFetchFailed
	case errors.Is(err, catalog.ErrProcessing):
		return http.StatusInternalServerError, MsgSortFailed
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// abortWithError writes the error body and stops the handler chain.
func abortWithError(c *gin.Context, err error) {
	status, message := statusForError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message})
}
