// quiz переводит ответы анкеты в баллы по карьерным категориям,
// ранжирует категории и строит краткую сводку результата.
//
// Все операции Engine чистые: без I/O и без изменяемого состояния,
// поэтому один Engine безопасно использовать из нескольких горутин.
package quiz

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pribylovaa/go-career-advisor/internal/models"
)

// ErrInvalidInput — некорректная таблица весов или набор ответов.
var ErrInvalidInput = errors.New("invalid input")

// WeightTable — вариант ответа -> веса по категориям.
// Варианты сравниваются без учёта регистра и крайних пробелов.
type WeightTable map[string]map[models.Category]float64

// DefaultWeights — каждый вариант, совпадающий с названием категории,
// даёт 1 балл в свою категорию.
func DefaultWeights() WeightTable {
	w := make(WeightTable, len(catalog))
	for _, e := range catalog {
		w[string(e.Category)] = map[models.Category]float64{e.Category: 1}
	}

	return w
}

// Engine — движок оценки с провалидированной таблицей весов.
type Engine struct {
	weights   map[string]map[models.Category]float64
	questions int
	maxWeight float64
}

// NewEngine валидирует таблицу весов и создаёт движок.
//
// Валидация:
//   - questions >= 0 (0 — число вопросов определяется по числу ответов);
//   - вариант ответа не пустой;
//   - ключ категории из каталога (без учёта регистра);
//   - вес конечный и неотрицательный.
//
// Пустая таблица заменяется DefaultWeights.
func NewEngine(weights WeightTable, questions int) (*Engine, error) {
	if questions < 0 {
		return nil, fmt.Errorf("%w: questions must not be negative", ErrInvalidInput)
	}

	if len(weights) == 0 {
		weights = DefaultWeights()
	}

	e := &Engine{
		weights:   make(map[string]map[models.Category]float64, len(weights)),
		questions: questions,
	}

	for label, byCategory := range weights {
		key := normalize(label)
		if key == "" {
			return nil, fmt.Errorf("%w: empty option label", ErrInvalidInput)
		}

		row, ok := e.weights[key]
		if !ok {
			row = make(map[models.Category]float64, len(byCategory))
			e.weights[key] = row
		}

		for rawCategory, w := range byCategory {
			category, ok := ParseCategory(string(rawCategory))
			if !ok {
				return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, rawCategory)
			}

			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				return nil, fmt.Errorf("%w: weight for %q/%s must be a finite non-negative number", ErrInvalidInput, label, category)
			}

			row[category] = w
			if w > e.maxWeight {
				e.maxWeight = w
			}
		}
	}

	return e, nil
}

// Validate проверяет набор ответов до оценки.
func (e *Engine) Validate(answers models.Answers) error {
	for key := range answers {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: empty question key", ErrInvalidInput)
		}
	}

	return nil
}

// Score суммирует веса выбранных вариантов по категориям.
// Варианты без весов дают ноль; в результате всегда присутствуют все категории.
func (e *Engine) Score(answers models.Answers) models.CategoryScores {
	scores := make(models.CategoryScores, len(catalog))
	for _, c := range catalog {
		scores[c.Category] = 0
	}

	// Сумма float64 зависит от порядка слагаемых, поэтому обход по отсортированным ключам.
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		row, ok := e.weights[normalize(answers[k])]
		if !ok {
			continue
		}

		for _, c := range catalog {
			scores[c.Category] += row[c.Category]
		}
	}

	return scores
}

// Rank сортирует категории по убыванию балла; при равенстве сохраняется порядок каталога.
// Отсутствующие в scores категории считаются нулевыми.
func (e *Engine) Rank(scores models.CategoryScores) []models.Recommendation {
	recs := make([]models.Recommendation, len(catalog))
	for i, c := range catalog {
		recs[i] = models.Recommendation{
			Field:       c.Category,
			Score:       scores[c.Category],
			Title:       c.Title,
			Description: c.Description,
			Careers:     append([]string(nil), c.Careers...),
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})

	return recs
}

// Evaluate = Validate + Score + Rank.
func (e *Engine) Evaluate(answers models.Answers) (models.CategoryScores, []models.Recommendation, error) {
	if err := e.Validate(answers); err != nil {
		return nil, nil, err
	}

	scores := e.Score(answers)

	return scores, e.Rank(scores), nil
}

// MaxScore — максимально достижимый балл одной категории:
// max(questions, answered) * максимальный вес таблицы.
func (e *Engine) MaxScore(answered int) float64 {
	n := e.questions
	if answered > n {
		n = answered
	}

	return float64(n) * e.maxWeight
}

// Summarize строит компактную сводку по ранжированным рекомендациям.
// answered — число ответов в попытке, нужно для расчёта максимального балла.
func (e *Engine) Summarize(recs []models.Recommendation, answered int) models.ResultSummary {
	return SummarizeWithMax(recs, e.MaxScore(answered))
}

// SummarizeWithMax строит сводку при уже известном максимальном балле,
// например сохранённом вместе с результатом.
func SummarizeWithMax(recs []models.Recommendation, maxScore float64) models.ResultSummary {
	if len(recs) == 0 {
		return models.ResultSummary{}
	}

	top := recs[0]
	summary := models.ResultSummary{
		HasCompletedQuiz: true,
		TopCategory:      top.Field,
		TopTitle:         top.Title,
		TopScore:         top.Score,
		MaxScore:         maxScore,
		Rankings:         make([]models.Category, 0, len(recs)),
	}

	if summary.MaxScore > 0 {
		pct := math.Round(top.Score / summary.MaxScore * 100)
		summary.Percentage = int(math.Min(math.Max(pct, 0), 100))
	}

	parts := make([]string, 0, len(recs))
	for _, r := range recs {
		summary.Rankings = append(summary.Rankings, r.Field)
		parts = append(parts, string(r.Field)+": "+FormatScore(r.Score))
	}
	summary.DetailedScores = strings.Join(parts, ", ")

	return summary
}

// FormatScore печатает балл без лишних нулей: 2 -> "2", 1.5 -> "1.5".
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}
