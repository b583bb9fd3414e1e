package models

import (
	"time"

	"github.com/google/uuid"
)

// Category — одна из четырёх фиксированных карьерных категорий.
type Category string

const (
	CategoryTechnical         Category = "Technical"
	CategoryBusiness          Category = "Business"
	CategoryCreative          Category = "Creative"
	CategoryInterdisciplinary Category = "Interdisciplinary"
)

// Answers — ответы анкеты: ключ вопроса -> выбранный вариант.
type Answers map[string]string

// CategoryScores — баллы по категориям; в результате всегда присутствуют все категории.
type CategoryScores map[Category]float64

// Recommendation — категория с баллом и статическим описанием.
type Recommendation struct {
	Field       Category
	Score       float64
	Title       string
	Description string
	Careers     []string
}

// QuizResult — сохранённая попытка прохождения теста. После создания не меняется.
// MaxScore — максимально достижимый балл по таблице весов, которой считалась попытка;
// 0 у записей, сохранённых до появления поля.
type QuizResult struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Answers            Answers
	CategoryScores     CategoryScores
	TopRecommendations []Recommendation
	MaxScore           float64
	CompletedAt        time.Time
}

// ResultSummary — компактная проекция результата для контекста чата.
type ResultSummary struct {
	HasCompletedQuiz bool
	TopCategory      Category
	TopTitle         string
	TopScore         float64
	MaxScore         float64
	Percentage       int
	Rankings         []Category
	DetailedScores   string
}
