package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/services"
	"github.com/quizforge/quiz-service/internal/utils"
)

type QuizHandler struct {
	BaseHandler
	quizService   services.QuizService
	exportService services.ExportService
}

func NewQuizHandler(quizService services.QuizService, exportService services.ExportService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler:   NewBaseHandler(logger),
		quizService:   quizService,
		exportService: exportService,
	}
}

// CreateQuizResponse pairs the stored quiz with validator warnings so
// authors see non-fatal findings on submit.
type CreateQuizResponse struct {
	Quiz     *models.Quiz `json:"quiz"`
	Warnings []string     `json:"warnings,omitempty"`
}

// CreateQuiz validates and stores a raw quiz definition
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read request body",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating quiz", "payload_bytes", len(raw))

	quiz, report, err := h.quizService.Create(c.Request.Context(), raw, h.createdBy(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateQuizResponse{Quiz: quiz, Warnings: report.Warnings})
}

// GetQuiz retrieves a stored quiz by ID
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// ListQuizzes lists stored quizzes with optional status filtering
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	filters := repositories.QuizFilters{
		Limit:     parseIntQuery(c, "limit", 20),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}
	if status := c.Query("status"); status != "" {
		s := models.QuizStatus(status)
		filters.Status = &s
	}
	if createdBy := c.Query("created_by"); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	quizzes, total, err := h.quizService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: quizzes, Total: total})
}

// UpdateQuiz replaces a quiz definition after re-validation
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read request body",
			Details: err.Error(),
		})
		return
	}

	quiz, report, err := h.quizService.Update(c.Request.Context(), id, raw)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, CreateQuizResponse{Quiz: quiz, Warnings: report.Warnings})
}

// PublishQuiz makes a quiz available for sessions
func (h *QuizHandler) PublishQuiz(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	quiz, err := h.quizService.Publish(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// DeleteQuiz removes a quiz
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Quiz deleted"})
}

// ValidateQuiz runs validation without persisting anything
func (h *QuizHandler) ValidateQuiz(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read request body",
			Details: err.Error(),
		})
		return
	}

	report, err := h.quizService.Validate(c.Request.Context(), raw)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ExportResults streams completed session results as an XLSX workbook
func (h *QuizHandler) ExportResults(c *gin.Context) {
	id := ParseUintIDParam(c, "id")
	if id == 0 {
		return
	}

	data, err := h.exportService.ExportResultsToExcel(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="quiz-results.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *QuizHandler) createdBy(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if s, ok := userID.(string); ok {
			return s
		}
	}
	return "anonymous"
}

func (h *QuizHandler) handleServiceError(c *gin.Context, err error) {
	var rejected *services.QuizRejectedError
	if errors.As(err, &rejected) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Quiz definition rejected",
			Details: rejected,
		})
		return
	}

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizMalformed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Quiz definition must be a JSON object",
		})
	case errors.Is(err, services.ErrQuizNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	case errors.Is(err, services.ErrQuizNotEditable):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Quiz cannot be modified in its current status",
		})
	default:
		h.LogError(c, err, "Unhandled quiz service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
