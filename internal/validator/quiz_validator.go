package validator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/quizforge/quiz-service/internal/expr"
	"github.com/quizforge/quiz-service/internal/models"
)

// ErrMalformedQuiz is fatal: the uploaded payload is not a JSON object
// and no per-field reporting is possible. Everything else a quiz author
// gets wrong is accumulated into a Report instead.
var ErrMalformedQuiz = errors.New("quiz definition is not a JSON object")

// Report accumulates every problem found in a quiz definition. Errors
// block saving; warnings are surfaced to the author but do not.
type Report struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (r *Report) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Report) addError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// QuizValidator performs the deep semantic validation of quiz
// definitions: structure, score declarations, and a static probe of
// every embedded expression through the evaluator. A quiz that passes
// here can be played without the engine ever seeing an evaluation error.
type QuizValidator struct {
	structValidator *validator.Validate
}

func NewQuizValidator() *QuizValidator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)
	return &QuizValidator{structValidator: structValidator}
}

// ValidateRaw parses an uploaded quiz payload and validates it. The only
// fatal outcome is ErrMalformedQuiz for a payload whose root is not an
// object; all content problems are reported, accumulated, so an author
// sees every problem in one pass.
func (v *QuizValidator) ValidateRaw(raw []byte) (*models.QuizDefinition, *Report, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedQuiz, err)
	}

	report := &Report{}
	quiz := &models.QuizDefinition{}

	for _, field := range []string{"metadata", "scores", "questions", "transitions"} {
		if _, ok := root[field]; !ok {
			report.addError("missing required field %q", field)
		}
	}

	if section, ok := root["metadata"]; ok {
		if err := json.Unmarshal(section, &quiz.Metadata); err != nil {
			report.addError("metadata: must be an object with a title")
		} else if err := v.structValidator.Struct(&quiz.Metadata); err != nil {
			for _, fieldErr := range ToValidationErrors(err) {
				report.addError("metadata: %s %s", fieldErr.Field, fieldErr.Message)
			}
		}
	}
	scoresOK := false
	if section, ok := root["scores"]; ok {
		if err := json.Unmarshal(section, &quiz.Scores); err != nil {
			report.addError("scores: must be a flat mapping of score names to numbers")
		} else {
			scoresOK = true
		}
	}
	questionsOK := false
	if section, ok := root["questions"]; ok {
		if err := json.Unmarshal(section, &quiz.Questions); err != nil {
			report.addError("questions: must be a list of question objects")
		} else {
			questionsOK = true
		}
	}
	transitionsOK := false
	if section, ok := root["transitions"]; ok {
		if err := json.Unmarshal(section, &quiz.Transitions); err != nil {
			report.addError("transitions: must map question ids to lists of transition rules")
		} else {
			transitionsOK = true
		}
	}

	// Content checks run for every section that decoded. A broken
	// section suppresses only its own checks; a metadata error never
	// hides an expression or transition finding.
	var idents map[string]struct{}
	if scoresOK {
		idents = identClosure(quiz)
	}
	var questionIDs map[int]bool
	if questionsOK {
		if len(quiz.Questions) == 0 {
			report.addError("quiz must declare at least one question")
		} else {
			questionIDs = v.checkQuestions(quiz, idents, report)
		}
	}
	if transitionsOK {
		v.checkTransitions(quiz, idents, questionIDs, report)
	}

	return quiz, report, nil
}

// identClosure is the probe variable set: the reserved "answer" plus
// every declared score. Expressions may reference nothing else.
func identClosure(quiz *models.QuizDefinition) map[string]struct{} {
	idents := make(map[string]struct{}, len(quiz.Scores)+1)
	idents["answer"] = struct{}{}
	for name := range quiz.Scores {
		idents[name] = struct{}{}
	}
	return idents
}

// Validate checks an already-decoded definition. All applicable checks
// run and accumulate; a single bad expression never masks the others.
func (v *QuizValidator) Validate(quiz *models.QuizDefinition) *Report {
	report := &Report{}

	if quiz.Scores == nil {
		report.addError("missing required field %q", "scores")
	}
	if len(quiz.Questions) == 0 {
		report.addError("quiz must declare at least one question")
		return report
	}

	idents := identClosure(quiz)
	questionIDs := v.checkQuestions(quiz, idents, report)
	v.checkTransitions(quiz, idents, questionIDs, report)

	return report
}

// probe statically checks one embedded expression. A nil ident set means
// the score declarations did not decode, so the closure is unknown and
// only the grammar can be checked.
func probe(expression string, idents map[string]struct{}) error {
	if idents == nil {
		_, err := expr.Parse(expression)
		return err
	}
	return expr.Check(expression, idents)
}

func (v *QuizValidator) checkQuestions(quiz *models.QuizDefinition, idents map[string]struct{}, report *Report) map[int]bool {
	questionIDs := make(map[int]bool, len(quiz.Questions))

	for i, question := range quiz.Questions {
		label := fmt.Sprintf("questions[%d] (id %d)", i, question.ID)

		if questionIDs[question.ID] {
			report.addError("%s: duplicate question id", label)
		}
		questionIDs[question.ID] = true

		switch question.Kind {
		case models.MultipleChoice:
			if len(question.Prompt.Options) == 0 {
				report.addError("%s: multiple_choice question must declare at least one option", label)
			}
		case models.FreeText, models.Scale, models.FinalMessage:
		case "":
			report.addError("%s: missing question kind", label)
		default:
			report.addError("%s: unknown question kind %q", label, question.Kind)
		}

		if question.Prompt.Text == "" {
			report.addError("%s: missing prompt text", label)
		}

		for j, update := range question.ScoreUpdates {
			if err := probe(update.Condition, idents); err != nil {
				report.addError("%s: score update %d condition: %v", label, j, err)
			}
			for score, expression := range update.Assignments {
				if idents != nil {
					if _, declared := quiz.Scores[score]; !declared {
						report.addError("%s: score update %d assigns undeclared score %q", label, j, score)
					}
				}
				if err := probe(expression, idents); err != nil {
					report.addError("%s: score update %d assignment %q: %v", label, j, score, err)
				}
			}
		}
	}

	return questionIDs
}

func (v *QuizValidator) checkTransitions(quiz *models.QuizDefinition, idents map[string]struct{}, questionIDs map[int]bool, report *Report) {
	for questionID, rules := range quiz.Transitions {
		label := fmt.Sprintf("transitions[%d]", questionID)

		if questionIDs != nil && !questionIDs[questionID] {
			report.addWarning("%s: transition list for a question that does not exist", label)
		}

		sawUnconditional := false
		for j, rule := range rules {
			if err := probe(rule.Condition, idents); err != nil {
				report.addError("%s: rule %d condition: %v", label, j, err)
			}
			if questionIDs != nil && rule.NextQuestionID != nil && !questionIDs[*rule.NextQuestionID] {
				report.addError("%s: rule %d routes to unknown question id %d", label, j, *rule.NextQuestionID)
			}

			if sawUnconditional {
				report.addWarning("%s: rule %d is unreachable, an earlier rule is unconditionally true", label, j)
			}
			if isLiteralTrue(rule.Condition) {
				sawUnconditional = true
			}
		}

		// A list whose last rule can fail leaves the author without a
		// guaranteed fallback; possible dead-end for the taker.
		if len(rules) > 0 && !isLiteralTrue(rules[len(rules)-1].Condition) && !sawUnconditional {
			report.addWarning("%s: last rule's condition is not the literal \"true\", quiz may dead-end", label)
		}
	}
}

// isLiteralTrue reports whether a condition is exactly the literal true.
func isLiteralTrue(condition string) bool {
	node, err := expr.Parse(condition)
	if err != nil {
		return false
	}
	lit, ok := node.(expr.Literal)
	return ok && lit.Value.Kind == expr.KindBool && lit.Value.Bool
}
