package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quiz-service/internal/expr"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/services"
	"github.com/quizforge/quiz-service/internal/utils"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// StartSessionRequest names the quiz and the caller-chosen session id.
type StartSessionRequest struct {
	QuizID    uint   `json:"quiz_id" binding:"required"`
	SessionID string `json:"session_id" binding:"required"`
}

// AnswerRequest carries one answer value. Numbers, booleans and strings
// are accepted; anything else is rejected before it reaches the engine.
type AnswerRequest struct {
	Answer interface{} `json:"answer"`
}

// StepResponse reports where the session stands after a step.
type StepResponse struct {
	Completed bool                 `json:"completed"`
	Question  *models.QuestionView `json:"question,omitempty"`
	Result    *models.FinalResult  `json:"result,omitempty"`
}

// StartSession begins a session against a published quiz
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Starting session", "quiz_id", req.QuizID, "session_id", req.SessionID)

	view, err := h.sessionService.Start(c.Request.Context(), req.QuizID, req.SessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, StepResponse{Question: view})
}

// GetCurrentQuestion returns the question the session is waiting on
func (h *SessionHandler) GetCurrentQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	view, err := h.sessionService.Current(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, StepResponse{Question: view})
}

// SubmitAnswer advances the session by one step
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if _, ok := expr.FromAny(req.Answer); !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Answer must be a number, boolean or string",
		})
		return
	}

	result, err := h.sessionService.Answer(c.Request.Context(), id, req.Answer)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, StepResponse{
		Completed: result.Completed(),
		Question:  result.Question,
		Result:    result.Final,
	})
}

// GetResults returns final scores for a completed session
func (h *SessionHandler) GetResults(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	result, err := h.sessionService.Results(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SessionHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	case errors.Is(err, services.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Session not found",
		})
	case errors.Is(err, services.ErrDuplicateSession):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session id already in use",
		})
	case errors.Is(err, services.ErrQuizNotPublished):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Quiz is not published",
		})
	case errors.Is(err, services.ErrSessionNotActive):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session has already completed",
		})
	case errors.Is(err, services.ErrSessionNotEnded):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Session has not completed yet",
		})
	case errors.Is(err, services.ErrInvalidAnswerValue):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Answer value is not valid for the current question",
			Details: err.Error(),
		})
	default:
		h.LogError(c, err, "Unhandled session service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
