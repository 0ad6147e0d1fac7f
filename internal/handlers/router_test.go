package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizforge/quiz-service/internal/cache"
	"github.com/quizforge/quiz-service/internal/config"
	"github.com/quizforge/quiz-service/internal/events"
	"github.com/quizforge/quiz-service/internal/repositories/memory"
	"github.com/quizforge/quiz-service/internal/services"
	"github.com/quizforge/quiz-service/internal/utils"
	"github.com/quizforge/quiz-service/internal/validator"
)

const quizPayload = `{
	"metadata": {"title": "Onboarding"},
	"scores": {"interest": 0},
	"questions": [
		{
			"id": 1,
			"kind": "scale",
			"prompt": {"text": "Rate your interest, 1-5"},
			"score_updates": [
				{"condition": "answer >= 3", "assignments": {"interest": "interest + 1"}}
			]
		},
		{
			"id": 2,
			"kind": "final_message",
			"prompt": {"text": "Thanks!"}
		}
	],
	"transitions": {
		"1": [{"condition": "true", "next_question_id": 2}],
		"2": [{"condition": "true", "next_question_id": null}]
	}
}`

func testSlogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewDevelopmentLogger()
	slogger := testSlogger()
	repo := memory.NewRepository()
	publisher := events.NewMockEventPublisher(slogger)
	quizzes := services.NewQuizService(repo, cache.NoopCache{}, publisher, validator.New(), slogger)
	sessions := services.NewSessionService(repo, quizzes, publisher, slogger)
	exporter := services.NewExportService(quizzes, sessions, slogger)

	manager := NewHandlerManager(quizzes, sessions, exporter, config.AuthConfig{}, logger)
	router := gin.New()
	manager.SetupRoutes(router)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_QuizLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/quizzes", quizPayload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created CreateQuizResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.Quiz)
	assert.Equal(t, "Onboarding", created.Quiz.Title)

	w = doJSON(t, router, http.MethodPost, "/api/v1/quizzes/1/publish", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/v1/quizzes/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/quizzes", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RejectsInvalidQuiz(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/quizzes", `["not", "an", "object"]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/quizzes", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/quizzes/validate", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "errors")
}

func TestRouter_SessionFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/quizzes", quizPayload)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, router, http.MethodPost, "/api/v1/quizzes/1/publish", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions", `{"quiz_id": 1, "session_id": "web-1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var step StepResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &step))
	require.NotNil(t, step.Question)
	assert.Equal(t, 1, step.Question.QuestionID)

	// Same id again conflicts.
	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions", `{"quiz_id": 1, "session_id": "web-1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// The question orders on the answer; a string is a well-formed
	// request the engine cannot accept.
	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/web-1/answer", `{"answer": "lots"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/web-1/answer", `{"answer": 4}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &step))
	assert.False(t, step.Completed)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/web-1/results", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/web-1/answer", `{"answer": "ok"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &step))
	require.True(t, step.Completed)
	assert.Equal(t, 1.0, step.Result.Scores["interest"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/sessions/web-1/results", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/web-1/answer", `{"answer": 1}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/quizzes/1/results/export", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestRouter_SessionErrors(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/sessions/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions", `{"quiz_id": 42, "session_id": "x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sessions/unknown/answer", `{"answer": {"nested": true}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
