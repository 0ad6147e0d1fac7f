package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizforge/quiz-service/internal/cache"
	"github.com/quizforge/quiz-service/internal/events"
	"github.com/quizforge/quiz-service/internal/models"
	"github.com/quizforge/quiz-service/internal/repositories"
	"github.com/quizforge/quiz-service/internal/repositories/memory"
	"github.com/quizforge/quiz-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testDefinition(t *testing.T) []byte {
	t.Helper()
	definition := models.QuizDefinition{
		Metadata: models.QuizMetadata{Title: "Sorting Quiz"},
		Scores:   map[string]float64{"bravery": 0, "wisdom": 0},
		Questions: []models.Question{
			{
				ID:   1,
				Kind: models.Scale,
				Prompt: models.Prompt{
					Text: "How bold are you, 1-10?",
				},
				ScoreUpdates: []models.ScoreUpdate{
					{Condition: "answer > 5", Assignments: map[string]string{"bravery": "bravery + 1"}},
				},
			},
			{
				ID:   2,
				Kind: models.MultipleChoice,
				Prompt: models.Prompt{
					Text:    "Pick a path",
					Options: []string{"forest", "library"},
				},
				ScoreUpdates: []models.ScoreUpdate{
					{Condition: "answer == 2", Assignments: map[string]string{"wisdom": "wisdom + 2"}},
				},
			},
			{
				ID:     3,
				Kind:   models.FinalMessage,
				Prompt: models.Prompt{Text: "All done"},
			},
		},
		Transitions: map[int][]models.TransitionRule{
			1: {
				{Condition: "bravery >= 1", NextQuestionID: models.IntPtr(2)},
				{Condition: "true", NextQuestionID: models.IntPtr(3)},
			},
			2: {
				{Condition: "true", NextQuestionID: models.IntPtr(3)},
			},
			3: {
				{Condition: "true", NextQuestionID: nil},
			},
		},
	}

	raw, err := json.Marshal(definition)
	require.NoError(t, err)
	return raw
}

type serviceFixture struct {
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	quizzes   QuizService
	sessions  SessionService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger := testLogger()
	repo := memory.NewRepository()
	publisher := events.NewMockEventPublisher(logger)
	quizzes := NewQuizService(repo, cache.NoopCache{}, publisher, validator.New(), logger)
	sessions := NewSessionService(repo, quizzes, publisher, logger)
	return &serviceFixture{repo: repo, publisher: publisher, quizzes: quizzes, sessions: sessions}
}

func (f *serviceFixture) publishedQuiz(t *testing.T) *models.Quiz {
	t.Helper()
	ctx := context.Background()
	quiz, report, err := f.quizzes.Create(ctx, testDefinition(t), "author-1")
	require.NoError(t, err)
	require.True(t, report.Valid())

	quiz, err = f.quizzes.Publish(ctx, quiz.ID)
	require.NoError(t, err)
	return quiz
}

func TestSessionService_StartAndAnswer(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	view, err := f.sessions.Start(ctx, quiz.ID, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.QuestionID)
	assert.Equal(t, models.Scale, view.Kind)

	// Bold answer bumps bravery and routes to question 2.
	result, err := f.sessions.Answer(ctx, "s-1", float64(8))
	require.NoError(t, err)
	require.False(t, result.Completed())
	assert.Equal(t, 2, result.Question.QuestionID)

	result, err = f.sessions.Answer(ctx, "s-1", float64(2))
	require.NoError(t, err)
	require.False(t, result.Completed())
	assert.Equal(t, 3, result.Question.QuestionID)

	result, err = f.sessions.Answer(ctx, "s-1", "ok")
	require.NoError(t, err)
	require.True(t, result.Completed())
	assert.Equal(t, 1.0, result.Final.Scores["bravery"])
	assert.Equal(t, 2.0, result.Final.Scores["wisdom"])

	final, err := f.sessions.Results(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, final.AnswerHistory, 3)
}

func TestSessionService_DuplicateStart(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	_, err := f.sessions.Start(ctx, quiz.ID, "s-dup")
	require.NoError(t, err)

	_, err = f.sessions.Start(ctx, quiz.ID, "s-dup")
	assert.ErrorIs(t, err, ErrDuplicateSession)
}

func TestSessionService_UnpublishedQuiz(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	quiz, _, err := f.quizzes.Create(ctx, testDefinition(t), "author-1")
	require.NoError(t, err)

	_, err = f.sessions.Start(ctx, quiz.ID, "s-1")
	assert.ErrorIs(t, err, ErrQuizNotPublished)
	assert.True(t, IsBusinessRule(err))
}

func TestSessionService_UnknownSession(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.sessions.Answer(ctx, "missing", float64(1))
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.sessions.Results(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_IncompatibleAnswerValue(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	_, err := f.sessions.Start(ctx, quiz.ID, "s-1")
	require.NoError(t, err)

	// Question 1 orders on the answer; a string cannot satisfy it.
	_, err = f.sessions.Answer(ctx, "s-1", "seven")
	assert.ErrorIs(t, err, ErrInvalidAnswerValue)

	// The rejected answer left no trace; the session is still playable.
	view, err := f.sessions.Current(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.QuestionID)

	result, err := f.sessions.Answer(ctx, "s-1", float64(8))
	require.NoError(t, err)
	require.False(t, result.Completed())
	assert.Equal(t, 2, result.Question.QuestionID)

	final, err := f.sessions.Results(ctx, "s-1")
	assert.ErrorIs(t, err, ErrSessionNotEnded)
	assert.Nil(t, final)
}

func TestSessionService_ResultsBeforeCompletion(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	_, err := f.sessions.Start(ctx, quiz.ID, "s-early")
	require.NoError(t, err)

	_, err = f.sessions.Results(ctx, "s-early")
	assert.ErrorIs(t, err, ErrSessionNotEnded)
}

func TestSessionService_AnswerAfterCompletion(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	// Answer 1 leaves bravery at zero, routing straight to the final message.
	_, err := f.sessions.Start(ctx, quiz.ID, "s-done")
	require.NoError(t, err)
	for _, answer := range []models.AnswerValue{float64(1), "bye"} {
		_, err = f.sessions.Answer(ctx, "s-done", answer)
		require.NoError(t, err)
	}

	_, err = f.sessions.Answer(ctx, "s-done", float64(1))
	assert.ErrorIs(t, err, ErrSessionNotActive)
}

func TestSessionService_LifecycleEvents(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	_, err := f.sessions.Start(ctx, quiz.ID, "s-events")
	require.NoError(t, err)
	for _, answer := range []models.AnswerValue{float64(9), float64(2), "bye"} {
		_, err = f.sessions.Answer(ctx, "s-events", answer)
		require.NoError(t, err)
	}

	var types []events.EventType
	for _, event := range f.publisher.GetPublishedEvents() {
		types = append(types, event.Type)
	}
	assert.Contains(t, types, events.EventQuizPublished)
	assert.Contains(t, types, events.EventSessionStarted)
	assert.Contains(t, types, events.EventSessionCompleted)
}

func TestSessionService_ConcurrentSessionsIsolated(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	quiz := f.publishedQuiz(t)

	const sessions = 20
	var wg sync.WaitGroup
	errs := make(chan error, sessions)

	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a'+i%26)) + "-session"
			if i >= 26 {
				id = id + "x"
			}
			if _, err := f.sessions.Start(ctx, quiz.ID, id); err != nil {
				errs <- err
				return
			}
			for _, answer := range []models.AnswerValue{float64(9), float64(2), "bye"} {
				if _, err := f.sessions.Answer(ctx, id, answer); err != nil {
					errs <- err
					return
				}
			}
			final, err := f.sessions.Results(ctx, id)
			if err != nil {
				errs <- err
				return
			}
			if final.Scores["bravery"] != 1 || final.Scores["wisdom"] != 2 {
				errs <- assert.AnError
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}
