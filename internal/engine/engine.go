// Package engine implements the adaptive quiz state machine. An Engine is
// a stateless pure-function view over one validated QuizDefinition;
// sessions are passed in and handed back, and whoever stores them owns
// the per-session write serialization.
package engine

import (
	"errors"
	"fmt"

	"github.com/quizforge/quiz-service/internal/expr"
	"github.com/quizforge/quiz-service/internal/models"
)

var (
	// ErrNoActiveSession is returned when answering a session that has
	// already completed.
	ErrNoActiveSession = errors.New("session has no active question")

	// ErrUnknownQuestion indicates a session pointing at a question id the
	// quiz does not contain. It cannot happen for a validated quiz and a
	// session the engine produced; treat it as data corruption, not
	// caller misuse.
	ErrUnknownQuestion = errors.New("session references unknown question")

	// ErrQuizNotComplete is returned by Results on a session that is
	// still in progress.
	ErrQuizNotComplete = errors.New("quiz session is not complete")

	// ErrIncompatibleAnswer is returned when the submitted answer's type
	// does not satisfy an expression on the current question, such as a
	// string against an ordering comparison. On a validated quiz the
	// answer is the only expression input the author does not control,
	// so a runtime type mismatch is always the caller's value.
	ErrIncompatibleAnswer = errors.New("answer type incompatible with question")
)

// StepResult is the outcome of answering a question: either the next
// question's view or, when the session completed, the final result.
type StepResult struct {
	Question *models.QuestionView
	Final    *models.FinalResult
}

func (r *StepResult) Completed() bool { return r.Final != nil }

// Engine evaluates answers for a single quiz definition. It never parses
// expressions beyond delegating to the expr package that the validator
// already ran over every embedded expression.
type Engine struct {
	quiz      *models.QuizDefinition
	questions map[int]*models.Question
}

// New builds an engine over a validated definition. The definition must
// have passed validation; New only rebuilds the id index.
func New(quiz *models.QuizDefinition) (*Engine, error) {
	if len(quiz.Questions) == 0 {
		return nil, errors.New("quiz has no questions")
	}
	questions := make(map[int]*models.Question, len(quiz.Questions))
	for i := range quiz.Questions {
		q := &quiz.Questions[i]
		if _, dup := questions[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		questions[q.ID] = q
	}
	return &Engine{quiz: quiz, questions: questions}, nil
}

// NewSession creates a fresh session positioned at the quiz's entry
// question, with scores seeded from the declared initial values.
func (e *Engine) NewSession(sessionID string, quizID uint) *models.Session {
	scores := make(map[string]float64, len(e.quiz.Scores))
	for name, initial := range e.quiz.Scores {
		scores[name] = initial
	}
	entry := e.quiz.EntryQuestionID()
	return &models.Session{
		ID:                sessionID,
		QuizID:            quizID,
		CurrentQuestionID: &entry,
		Scores:            scores,
		AnswerHistory:     []models.AnswerRecord{},
	}
}

// CurrentQuestion returns the view for the question a session is on.
func (e *Engine) CurrentQuestion(session *models.Session) (*models.QuestionView, error) {
	if session.Completed() {
		return nil, ErrNoActiveSession
	}
	question, ok := e.questions[*session.CurrentQuestionID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownQuestion, *session.CurrentQuestionID)
	}
	return e.questionView(session, question), nil
}

// Answer records an answer for the session's current question, applies
// every score update whose condition holds, then routes via the quiz's
// transition table. Scoring is fully settled before routing: transition
// conditions always see the scores as mutated by this same answer.
//
// Answer mutates the session. The caller must serialize calls for the
// same session id; different sessions are independent.
func (e *Engine) Answer(session *models.Session, value models.AnswerValue) (*StepResult, error) {
	if session.Completed() {
		return nil, ErrNoActiveSession
	}
	questionID := *session.CurrentQuestionID
	question, ok := e.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownQuestion, questionID)
	}

	answer, ok := expr.FromAny(value)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported answer type %T", ErrIncompatibleAnswer, value)
	}

	session.AnswerHistory = append(session.AnswerHistory, models.AnswerRecord{
		QuestionID: questionID,
		Answer:     value,
	})

	if err := e.applyScoreUpdates(session, question, answer); err != nil {
		return nil, err
	}

	nextID, err := e.selectTransition(session, questionID, answer)
	if err != nil {
		return nil, err
	}

	if nextID == nil {
		session.CurrentQuestionID = nil
		return &StepResult{Final: e.finalResult(session)}, nil
	}

	next, ok := e.questions[*nextID]
	if !ok {
		// Validation guarantees every next_question_id resolves.
		return nil, fmt.Errorf("%w: transition target %d", ErrUnknownQuestion, *nextID)
	}
	session.CurrentQuestionID = nextID
	return &StepResult{Question: e.questionView(session, next)}, nil
}

// Results returns the final result of a completed session. Pure read.
func (e *Engine) Results(session *models.Session) (*models.FinalResult, error) {
	if !session.Completed() {
		return nil, ErrQuizNotComplete
	}
	return e.finalResult(session), nil
}

// applyScoreUpdates runs the question's score updates in declaration
// order. Each update whose condition holds fires; within one update every
// assignment expression sees the scores as they were before that update
// (one-pass semantics), while later updates see earlier updates' writes.
func (e *Engine) applyScoreUpdates(session *models.Session, question *models.Question, answer expr.Value) error {
	for _, update := range question.ScoreUpdates {
		vars := e.variables(session, answer)

		fire, err := expr.EvaluateBool(update.Condition, vars)
		if err != nil {
			return wrapEvalError("score update condition", question.ID, err)
		}
		if !fire {
			continue
		}

		staged := make(map[string]float64, len(update.Assignments))
		for score, expression := range update.Assignments {
			result, err := expr.EvaluateNumber(expression, vars)
			if err != nil {
				return wrapEvalError(fmt.Sprintf("score assignment %q", score), question.ID, err)
			}
			staged[score] = result
		}
		for score, result := range staged {
			session.Scores[score] = result
		}
	}
	return nil
}

// selectTransition picks the first transition rule whose condition holds,
// evaluated against the post-update scores. No match, or an empty rule
// list, ends the quiz.
func (e *Engine) selectTransition(session *models.Session, questionID int, answer expr.Value) (*int, error) {
	vars := e.variables(session, answer)
	for _, rule := range e.quiz.Transitions[questionID] {
		matched, err := expr.EvaluateBool(rule.Condition, vars)
		if err != nil {
			return nil, wrapEvalError("transition condition", questionID, err)
		}
		if matched {
			return rule.NextQuestionID, nil
		}
	}
	return nil, nil
}

// wrapEvalError classifies a runtime evaluation failure. Validation
// pins everything about an expression except the answer's type, so a
// type mismatch maps to ErrIncompatibleAnswer; anything else points at
// corrupt stored data and stays an internal error.
func wrapEvalError(op string, questionID int, err error) error {
	var evalErr *expr.EvalError
	if errors.As(err, &evalErr) && evalErr.Reason == expr.ReasonTypeMismatch {
		return fmt.Errorf("%w: %s on question %d: %v", ErrIncompatibleAnswer, op, questionID, err)
	}
	return fmt.Errorf("%s on question %d: %w", op, questionID, err)
}

func (e *Engine) variables(session *models.Session, answer expr.Value) map[string]expr.Value {
	vars := make(map[string]expr.Value, len(session.Scores)+1)
	for name, val := range session.Scores {
		vars[name] = expr.Number(val)
	}
	vars["answer"] = answer
	return vars
}

func (e *Engine) questionView(session *models.Session, question *models.Question) *models.QuestionView {
	return &models.QuestionView{
		SessionID:  session.ID,
		QuestionID: question.ID,
		Kind:       question.Kind,
		Prompt:     question.Prompt,
	}
}

func (e *Engine) finalResult(session *models.Session) *models.FinalResult {
	scores := make(map[string]float64, len(session.Scores))
	for name, val := range session.Scores {
		scores[name] = val
	}
	history := make([]models.AnswerRecord, len(session.AnswerHistory))
	copy(history, session.AnswerHistory)
	return &models.FinalResult{
		SessionID:     session.ID,
		Scores:        scores,
		AnswerHistory: history,
	}
}
