package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/icec/internal/model"
	"github.com/xxxsen/icec/internal/pkg/errcode"
	"github.com/xxxsen/icec/internal/pkg/response"
	"github.com/xxxsen/icec/internal/service"
)

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, users)
}

type updateUserRequest struct {
	FullName *string `json:"fullName" form:"fullName"`
	IsAdmin  *bool   `json:"isAdmin" form:"isAdmin"`
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	user, err := h.users.Update(c.Request.Context(), c.Param("id"), model.UserPatch{
		FullName: req.FullName,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
