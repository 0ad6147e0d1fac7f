package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/quizforge/quiz-service/internal/repositories"
)

// ExportService produces spreadsheet exports of session results.
type ExportService interface {
	ExportResultsToExcel(ctx context.Context, quizID uint) ([]byte, error)
}

type exportService struct {
	quizzes  QuizService
	sessions SessionService
	logger   *slog.Logger
}

func NewExportService(quizzes QuizService, sessions SessionService, logger *slog.Logger) ExportService {
	return &exportService{
		quizzes:  quizzes,
		sessions: sessions,
		logger:   logger,
	}
}

// ExportResultsToExcel writes one row per completed session with final
// score values in stable column order.
func (s *exportService) ExportResultsToExcel(ctx context.Context, quizID uint) ([]byte, error) {
	definition, err := s.quizzes.GetDefinition(ctx, quizID)
	if err != nil {
		return nil, err
	}

	sessions, _, err := s.sessions.ListByQuiz(ctx, quizID, repositories.SessionFilters{CompletedOnly: true})
	if err != nil {
		return nil, err
	}

	scoreNames := make([]string, 0, len(definition.Scores))
	for name := range definition.Scores {
		scoreNames = append(scoreNames, name)
	}
	sort.Strings(scoreNames)

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := append([]string{"Session ID"}, scoreNames...)
	headers = append(headers, "Answers", "Completed At")

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}

	for rowIndex, session := range sessions {
		row := make([]interface{}, 0, len(headers))
		row = append(row, session.ID)
		for _, name := range scoreNames {
			row = append(row, session.Scores[name])
		}
		row = append(row, len(session.AnswerHistory), session.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))

		for colIndex, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			if err != nil {
				return nil, fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported session results",
		"quiz_id", quizID,
		"sessions", len(sessions))

	return buf.Bytes(), nil
}
