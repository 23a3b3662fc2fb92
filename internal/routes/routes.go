package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"survey-app-server/internal/handlers"
	"survey-app-server/internal/middleware"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Surveys  *handlers.SurveyHandler
	Verifier middleware.TokenVerifier
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, h Handlers) {
	requireAuth := middleware.AuthMiddleware(h.Verifier)

	router.GET("/", requireAuth, handlers.ProtectedRoot)

	// Public routes (no authentication required)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", h.Auth.Register)
		authRoutes.POST("/login", h.Auth.Login)
		authRoutes.POST("/refresh", h.Auth.RefreshToken)
		authRoutes.POST("/logout", requireAuth, h.Auth.Logout)
		authRoutes.GET("/profile", requireAuth, h.Auth.GetProfile)
	}

	surveyRoutes := router.Group("/surveys")
	{
		// Listing resolves the caller from the token itself and never rejects.
		surveyRoutes.GET("", h.Surveys.ListSurveys)
		surveyRoutes.GET("/:id", h.Surveys.GetSurvey)
		surveyRoutes.POST("/:id/answer", h.Surveys.SubmitAnswer)

		// Authenticated routes
		private := surveyRoutes.Group("")
		private.Use(requireAuth)
		{
			private.POST("", h.Surveys.CreateSurvey)
			private.PUT("/:id", h.Surveys.UpdateSurvey)
			private.DELETE("/:id", h.Surveys.DeleteSurvey)
			private.GET("/:id/results", h.Surveys.GetResults)
			private.POST("/:id/questions", h.Surveys.AddQuestion)
			private.PUT("/:id/questions/:questionId", h.Surveys.EditQuestion)
			private.DELETE("/:id/questions/:questionId", h.Surveys.DeleteQuestion)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
