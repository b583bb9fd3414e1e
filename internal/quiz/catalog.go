package quiz

import (
	"strings"

	"github.com/pribylovaa/go-career-advisor/internal/models"
)

// Entry — статическое описание категории.
type Entry struct {
	Category    models.Category
	Title       string
	Description string
	Careers     []string
}

// catalog задаёт фиксированный порядок категорий; индекс используется
// для разрешения ничьих при ранжировании.
var catalog = []Entry{
	{
		Category:    models.CategoryTechnical,
		Title:       "Software Engineering & Computer Science",
		Description: "Build the future through code. Design systems, solve complex problems, and create innovative software solutions.",
		Careers:     []string{"Software Developer", "Data Scientist", "ML Engineer", "Systems Architect", "Cybersecurity Specialist"},
	},
	{
		Category:    models.CategoryBusiness,
		Title:       "Business Information Systems & IT Management",
		Description: "Bridge technology and business. Lead projects, analyze data, and drive digital transformation.",
		Careers:     []string{"IT Project Manager", "Business Analyst", "IT Consultant", "Product Manager", "Data Analyst"},
	},
	{
		Category:    models.CategoryCreative,
		Title:       "Digital Design & Media Technology",
		Description: "Create beautiful digital experiences. Design intuitive interfaces and compelling visual content.",
		Careers:     []string{"UI/UX Designer", "Front-end Developer", "Digital Content Creator", "Interactive Media Designer", "Web Designer"},
	},
	{
		Category:    models.CategoryInterdisciplinary,
		Title:       "Interdisciplinary IT & Emerging Technologies",
		Description: "Innovate at the intersection of fields. Apply technology to transform healthcare, education, and more.",
		Careers:     []string{"Tech Entrepreneur", "Innovation Consultant", "Digital Transformation Specialist", "EdTech Developer", "HealthTech Specialist"},
	},
}

// Catalog возвращает копию каталога в фиксированном порядке.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	for i, e := range catalog {
		e.Careers = append([]string(nil), e.Careers...)
		out[i] = e
	}

	return out
}

// Categories возвращает названия категорий в порядке каталога.
func Categories() []models.Category {
	out := make([]models.Category, len(catalog))
	for i, e := range catalog {
		out[i] = e.Category
	}

	return out
}

// ParseCategory ищет категорию без учёта регистра.
func ParseCategory(s string) (models.Category, bool) {
	s = strings.TrimSpace(s)
	for _, e := range catalog {
		if strings.EqualFold(string(e.Category), s) {
			return e.Category, true
		}
	}

	return "", false
}
