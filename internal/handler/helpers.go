package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/gemchat/internal/pkg/errcode"
	appErr "github.com/xxxsen/gemchat/internal/pkg/errors"
	"github.com/xxxsen/gemchat/internal/pkg/response"
)

// handleError maps service errors onto HTTP statuses. Attachment problems
// count as client errors; only a dead AI backend maps to 502.
func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrUnsupportedFile):
		response.Error(c, http.StatusBadRequest, errcode.ErrUnsupportedFile, err.Error())
	case errors.Is(err, appErr.ErrFileUnreadable):
		response.Error(c, http.StatusBadRequest, errcode.ErrFileUnreadable, err.Error())
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, err.Error())
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, err.Error())
	case errors.Is(err, appErr.ErrAIUnavailable):
		response.Error(c, http.StatusBadGateway, errcode.ErrAIUnavailable, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
