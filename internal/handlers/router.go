package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/quizforge/quiz-service/internal/config"
	"github.com/quizforge/quiz-service/internal/services"
	"github.com/quizforge/quiz-service/internal/utils"
)

type HandlerManager struct {
	quizHandler    *QuizHandler
	sessionHandler *SessionHandler
	authConfig     config.AuthConfig
	logger         utils.Logger
}

func NewHandlerManager(
	quizService services.QuizService,
	sessionService services.SessionService,
	exportService services.ExportService,
	authConfig config.AuthConfig,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		quizHandler:    NewQuizHandler(quizService, exportService, logger),
		sessionHandler: NewSessionHandler(sessionService, logger),
		authConfig:     authConfig,
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(RequestLogger(hm.logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "quiz-service",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(AuthMiddleware(hm.authConfig))
	{
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", hm.quizHandler.CreateQuiz)
			quizzes.POST("/validate", hm.quizHandler.ValidateQuiz)
			quizzes.GET("", hm.quizHandler.ListQuizzes)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.PUT("/:id", hm.quizHandler.UpdateQuiz)
			quizzes.POST("/:id/publish", hm.quizHandler.PublishQuiz)
			quizzes.DELETE("/:id", hm.quizHandler.DeleteQuiz)
			quizzes.GET("/:id/results/export", hm.quizHandler.ExportResults)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("/:id", hm.sessionHandler.GetCurrentQuestion)
			sessions.POST("/:id/answer", hm.sessionHandler.SubmitAnswer)
			sessions.GET("/:id/results", hm.sessionHandler.GetResults)
		}
	}
}
