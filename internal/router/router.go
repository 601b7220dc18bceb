package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/waiyaki/maintraq/internal/handlers"
	"github.com/waiyaki/maintraq/internal/middleware"
	"github.com/waiyaki/maintraq/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Page you are looking for was not found"})
	})

	r.GET("/health", handlers.HealthCheck)

	// Session and account management
	r.GET("/login", handlers.LoginForm)
	r.POST("/login", handlers.Login)
	r.GET("/logout", handlers.Logout)
	r.GET("/register", handlers.RegisterForm)
	r.POST("/register", handlers.Register)
	r.POST("/reset", handlers.RequestPasswordReset)
	r.POST("/reset/:token", handlers.ResetPassword)

	authed := r.Group("", middleware.AuthMiddleware())
	{
		authed.GET("/confirm/:token", handlers.Confirm)
		authed.GET("/confirm", handlers.ResendConfirmation)
		authed.POST("/change-email", handlers.RequestEmailChange)
		authed.GET("/change-email/:token", handlers.ChangeEmail)
		authed.GET("/auth/me", handlers.Me)
	}

	// The task workflow is closed to unconfirmed accounts.
	confirmed := r.Group("", middleware.AuthMiddleware(), middleware.RequireConfirmed())
	{
		confirmed.GET("/", handlers.ListTasks)
		confirmed.POST("/", handlers.ListTasks)

		confirmed.GET("/task-requests", handlers.TaskRequestForm)
		confirmed.POST("/task-requests", handlers.CreateTask)

		confirmed.GET("/view-task/:id", handlers.ViewTask)
		confirmed.GET("/update-task/:id", handlers.UpdateTaskForm)
		confirmed.POST("/update-task/:id", handlers.UpdateTask)

		confirmed.GET("/facilities", handlers.ListFacilities)

		admin := confirmed.Group("", middleware.RequireAdmin())
		{
			admin.GET("/tasks/reject/:id", handlers.RejectTaskForm)
			admin.POST("/tasks/reject/:id", handlers.RejectTask)
			admin.POST("/facilities", handlers.CreateFacility)

			admin.GET("/users", handlers.ListUsers)
			admin.GET("/edit-profile/:id", handlers.EditUserForm)
			admin.POST("/edit-profile/:id", handlers.UpdateUser)
		}
	}

	return r
}
