package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/icec/internal/pkg/errcode"
	appErr "github.com/xxxsen/icec/internal/pkg/errors"
	"github.com/xxxsen/icec/internal/pkg/response"
	"github.com/xxxsen/icec/internal/render"
	"github.com/xxxsen/icec/internal/service"
)

const forgotPasswordNotice = "If that email is registered, a password reset link has been sent."

type AuthHandler struct {
	auth     *service.AuthService
	reset    *service.PasswordResetService
	renderer *render.Renderer
}

func NewAuthHandler(auth *service.AuthService, reset *service.PasswordResetService, renderer *render.Renderer) *AuthHandler {
	return &AuthHandler{auth: auth, reset: reset, renderer: renderer}
}

type registerRequest struct {
	FullName string `json:"fullName" form:"fullName"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" form:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, gin.H{"message": "User registered successfully! Please verify your email."})
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	user, err := h.auth.VerifyEmail(c.Request.Context(), c.Query("token"), c.Query("otp"))
	if err != nil {
		handleError(c, err)
		return
	}
	h.page(c, render.VerifyResult, gin.H{"Message": "Email verified for " + user.Email + ". You can now log in."})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"status": "ok",
		"token":  res.Token,
		"name":   res.User.FullName,
	})
}

func (h *AuthHandler) ForgotPasswordPage(c *gin.Context) {
	h.page(c, render.ForgotForm, gin.H{"Action": c.Request.URL.Path})
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"status": "ok", "message": forgotPasswordNotice})
}

func (h *AuthHandler) ResetPasswordPage(c *gin.Context) {
	user, err := h.reset.CheckToken(c.Request.Context(), c.Param("id"), c.Param("token"))
	if err != nil {
		handleResetError(c, err)
		return
	}
	h.page(c, render.ResetForm, gin.H{"Email": user.Email, "Action": c.Request.URL.Path})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	if err := h.reset.ResetPassword(c.Request.Context(), c.Param("id"), c.Param("token"), req.Password); err != nil {
		handleResetError(c, err)
		return
	}
	h.page(c, render.ResetSuccess, nil)
}

// handleResetError reports an unknown account as a bad request and a
// rejected token as forbidden.
func handleResetError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusBadRequest, errcode.ErrNotFound, "User not found")
	case errors.Is(err, appErr.ErrInvalidToken):
		response.Error(c, http.StatusForbidden, errcode.ErrInvalidToken, "Invalid or expired token")
	default:
		handleError(c, err)
	}
}

func (h *AuthHandler) page(c *gin.Context, name string, data interface{}) {
	body, err := h.renderer.Render(name, data)
	if err != nil {
		handleError(c, err)
		return
	}
	response.HTML(c, http.StatusOK, body)
}
