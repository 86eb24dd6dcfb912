package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/icec/internal/middleware"
	"github.com/xxxsen/icec/internal/pkg/errcode"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
	"github.com/xxxsen/icec/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserIDKey)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, code, msg := classifyError(err)
	logger := logutil.GetLogger(c.Request.Context()).With(
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed")
	} else {
		logger.Warn("request rejected")
	}
	response.Error(c, status, code, msg)
}

func classifyError(err error) (int, int, string) {
	var verr *appErr.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errcode.ErrInvalid, verr.Message
	case errors.Is(err, appErr.ErrInvalid):
		return http.StatusBadRequest, errcode.ErrInvalid, "invalid request"
	case errors.Is(err, appErr.ErrConflict):
		return http.StatusConflict, errcode.ErrConflict, "User already exists"
	case errors.Is(err, appErr.ErrInvalidToken):
		return http.StatusBadRequest, errcode.ErrInvalidToken, "Invalid or expired token"
	case errors.Is(err, appErr.ErrInvalidOTP):
		return http.StatusBadRequest, errcode.ErrInvalidOTP, "Invalid or expired OTP"
	case errors.Is(err, appErr.ErrInvalidCredentials):
		return http.StatusUnauthorized, errcode.ErrInvalidCredentials, "Invalid credentials"
	case errors.Is(err, appErr.ErrUnverified):
		return http.StatusForbidden, errcode.ErrUnverified, "Please verify your email first"
	case errors.Is(err, appErr.ErrNotFound):
		return http.StatusNotFound, errcode.ErrNotFound, "not found"
	case errors.Is(err, appErr.ErrUnauthorized):
		return http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized"
	case errors.Is(err, appErr.ErrForbidden):
		return http.StatusForbidden, errcode.ErrForbidden, "forbidden"
	case errors.Is(err, appErr.ErrTooMany):
		return http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests"
	case errors.Is(err, appErr.ErrEmailDelivery):
		return http.StatusInternalServerError, errcode.ErrEmailDelivery, "Failed to send email"
	case errors.Is(err, appErr.ErrInternal):
		return http.StatusInternalServerError, errcode.ErrInternal, "internal error"
	default:
		return http.StatusInternalServerError, errcode.ErrInternal, "internal error"
	}
}
