package reports

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/quiz"
)

// Key — ключ объекта: reports/<userID>/<resultID>.txt.
func Key(r *models.QuizResult) string {
	return path.Join("reports", r.UserID.String(), r.ID.String()+".txt")
}

// Filename — имя файла для скачивания.
func Filename(r *models.QuizResult) string {
	return "career-report-" + r.CompletedAt.UTC().Format("2006-01-02") + ".txt"
}

// Render формирует текстовый отчёт о результате теста.
func Render(username string, r *models.QuizResult) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "Career Assessment Report\n")
	fmt.Fprintf(&b, "User: %s\n", username)
	fmt.Fprintf(&b, "Completed: %s\n", r.CompletedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Result ID: %s\n\n", r.ID)

	b.WriteString("Category scores:\n")
	for _, c := range quiz.Categories() {
		fmt.Fprintf(&b, "  %-18s %s\n", c, quiz.FormatScore(r.CategoryScores[c]))
	}

	b.WriteString("\nRecommendations:\n")
	for i, rec := range r.TopRecommendations {
		fmt.Fprintf(&b, "%d. %s (%s) - score %s\n", i+1, rec.Title, rec.Field, quiz.FormatScore(rec.Score))
		if rec.Description != "" {
			fmt.Fprintf(&b, "   %s\n", rec.Description)
		}
		if len(rec.Careers) > 0 {
			fmt.Fprintf(&b, "   Careers: %s\n", strings.Join(rec.Careers, ", "))
		}
	}

	return []byte(b.String())
}
