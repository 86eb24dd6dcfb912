package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/icec/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Users     *UserHandler
	JWTSecret []byte
	// RateLimit guards the credential endpoints when set.
	RateLimit gin.HandlerFunc
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	users := api.Group("/users")

	limited := users.Group("")
	if deps.RateLimit != nil {
		limited.Use(deps.RateLimit)
	}
	limited.POST("/register", deps.Auth.Register)
	limited.POST("/login", deps.Auth.Login)
	limited.POST("/forgot-password", deps.Auth.ForgotPassword)
	limited.POST("/reset-password/:id/:token", deps.Auth.ResetPassword)

	users.GET("/verify-email", deps.Auth.VerifyEmail)
	users.GET("/forgot-password", deps.Auth.ForgotPasswordPage)
	users.GET("/reset-password/:id/:token", deps.Auth.ResetPasswordPage)

	authGroup := users.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/me", deps.Users.Me)

	admin := authGroup.Group("")
	admin.Use(middleware.RequireAdmin())
	admin.GET("", deps.Users.List)
	admin.GET("/user/:id", deps.Users.Get)
	admin.PUT("/:id", deps.Users.Update)
	admin.DELETE("/:id", deps.Users.Delete)
}
