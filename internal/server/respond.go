// -------------------------------------------------------------------------------
// Respond - Response Envelopes and Fault Serialization
//
// Project: KCloud / Author: Alex Freidah
//
// Central place where faults become HTTP responses. Every error body carries
// a stable machine-readable errorCode alongside the human message; success
// envelopes that need a code carry "NONE". Unknown faults are logged with
// their full cause server-side and shown to clients as a generic message.
// -------------------------------------------------------------------------------

package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nestorara/kcloud-music-api/internal/faults"
	"github.com/nestorara/kcloud-music-api/internal/storage"
)

// errorBody is the wire shape of every failed request.
type errorBody struct {
	Message   string   `json:"message,omitempty"`
	Messages  []string `json:"messages,omitempty"`
	ErrorCode string   `json:"errorCode"`
	Resource  string   `json:"resource,omitempty"`
}

// successBody is the wire shape of operations that report an outcome rather
// than a resource (delete, URL generation), optionally carrying warnings for
// partial blob cleanup failures.
type successBody struct {
	Message   string            `json:"message"`
	ErrorCode string            `json:"errorCode"`
	URL       string            `json:"url,omitempty"`
	Song      *storage.Song     `json:"song,omitempty"`
	Warnings  []storage.Warning `json:"warnings,omitempty"`
}

// writeFault classifies err and writes the error response. The raw cause of
// an unclassified error never reaches the client.
func writeFault(c *gin.Context, err error) {
	f := faults.From(err)

	if f.Kind == faults.Unknown {
		slog.Error("request failed with unclassified error",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
	}

	body := errorBody{
		ErrorCode: f.Kind.Code(),
		Resource:  f.Resource,
	}
	if len(f.Messages) > 0 {
		body.Messages = f.Messages
	} else {
		body.Message = f.Message
	}

	c.AbortWithStatusJSON(f.Kind.HTTPStatus(), body)
}

// writeSuccess writes an outcome envelope with errorCode NONE.
func writeSuccess(c *gin.Context, body successBody) {
	body.ErrorCode = faults.CodeNone
	c.JSON(http.StatusOK, body)
}
