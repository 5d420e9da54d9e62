package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"WeeklyStockPrice/internal/apperr"
)

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// statusClientClosed is reported when the caller went away before the result was ready.
const statusClientClosed = 499

// abortWithError maps err onto the HTTP taxonomy and writes the JSON body.
func abortWithError(c *gin.Context, err error) {
	logger := zerolog.Ctx(c.Request.Context())
	if errors.Is(err, context.Canceled) {
		logger.Debug().Msg("client closed request")
		c.AbortWithStatus(statusClientClosed)
		return
	}
	status := apperr.HTTPStatus(err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error().Err(err).Int("status", status).Msg("request failed")
	case status != http.StatusNotFound:
		logger.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	c.AbortWithStatusJSON(status, errorBody{
		Error:     apperr.Code(err),
		Message:   err.Error(),
		RequestID: c.GetString("request_id"),
	})
}
