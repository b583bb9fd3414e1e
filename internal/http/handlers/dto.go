package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/quiz"
	"github.com/pribylovaa/go-career-advisor/internal/reports"
)

// Входные/выходные модели REST. Имена полей совпадают с тем, что шлёт веб-клиент.

// flexInt — число, которое клиент может прислать строкой; null и "" — ноль.
type flexInt int

func (v *flexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" || s == `""` {
		*v = 0
		return nil
	}

	n, err := strconv.Atoi(strings.Trim(s, `"`))
	if err != nil {
		return err
	}

	*v = flexInt(n)
	return nil
}

// flexString — строка, которую клиент может прислать числом (yearClass: 3).
type flexString string

func (v *flexString) UnmarshalJSON(b []byte) error {
	if string(bytes.TrimSpace(b)) == "null" {
		*v = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*v = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}

	*v = flexString(n.String())
	return nil
}

type dateDTO struct {
	Year  flexInt `json:"year"`
	Month flexInt `json:"month"`
	Day   flexInt `json:"day"`
}

// profileFields — плоские поля анкеты, общие для регистрации и обновления профиля.
type profileFields struct {
	Identity            string     `json:"identity"`
	Gender              string     `json:"gender"`
	AccountNumber       string     `json:"accountNumber"`
	Name                string     `json:"name"`
	DateOfBirth         *dateDTO   `json:"dateOfBirth"`
	Email               string     `json:"email"`
	BackupEmail         string     `json:"backupEmail"`
	MobilePhone         string     `json:"mobilePhone"`
	EnrollmentYear      flexInt    `json:"enrollmentYear"`
	EnrollmentLevel     string     `json:"enrollmentLevel"`
	SchoolCity          string     `json:"schoolCity"`
	SchoolName          string     `json:"schoolName"`
	DurationOfStudy     string     `json:"durationOfStudy"`
	DepartmentInstitute string     `json:"departmentInstitute"`
	YearClass           flexString `json:"yearClass"`
	StudentID           string     `json:"studentId"`
}

func (p profileFields) toModel() models.Profile {
	out := models.Profile{
		Status:              models.Status(p.Identity),
		Gender:              models.Gender(p.Gender),
		AccountNumber:       p.AccountNumber,
		Name:                p.Name,
		Email:               p.Email,
		BackupEmail:         p.BackupEmail,
		MobilePhone:         p.MobilePhone,
		Enrollment:          models.Enrollment{Year: int(p.EnrollmentYear), Level: p.EnrollmentLevel},
		School:              models.School{City: p.SchoolCity, Name: p.SchoolName},
		DurationOfStudy:     p.DurationOfStudy,
		DepartmentInstitute: p.DepartmentInstitute,
		YearClass:           string(p.YearClass),
		StudentID:           p.StudentID,
	}

	if d := p.DateOfBirth; d != nil {
		out.DateOfBirth = models.Date{Year: int(d.Year), Month: int(d.Month), Day: int(d.Day)}
	}

	return out
}

type registerRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	Department    string `json:"department"`
	AgreedToTerms bool   `json:"agreedToTerms"`
	profileFields
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type careerPathDTO struct {
	AISummary          string   `json:"aiSummary"`
	RecommendedCourses []string `json:"recommendedCourses"`
}

// updateProfileRequest — полная анкета. AgreedToTerms принимается, но не применяется:
// согласие фиксируется при регистрации.
type updateProfileRequest struct {
	profileFields
	CareerPath    *careerPathDTO `json:"careerPath"`
	AgreedToTerms *bool          `json:"agreedToTerms,omitempty"`
}

// submitResultRequest — попытка прохождения теста. Results — баллы, посчитанные
// клиентом; сервер считает их сам и присланные не использует.
type submitResultRequest struct {
	UserID  string                        `json:"userId"`
	Answers models.Answers                `json:"answers"`
	Results json.RawMessage               `json:"results,omitempty"`
	Weights map[string]map[string]float64 `json:"weights,omitempty"`
}

func (r submitResultRequest) weightTable() quiz.WeightTable {
	if len(r.Weights) == 0 {
		return nil
	}

	out := make(quiz.WeightTable, len(r.Weights))
	for label, row := range r.Weights {
		byCategory := make(map[models.Category]float64, len(row))
		for category, w := range row {
			byCategory[models.Category(category)] = w
		}
		out[label] = byCategory
	}

	return out
}

// Ответы.

type dateView struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

type enrollmentView struct {
	Year  *int    `json:"year"`
	Level *string `json:"level"`
}

type schoolView struct {
	City *string `json:"city"`
	Name *string `json:"name"`
}

type profileView struct {
	Identity            *string        `json:"identity"`
	Gender              *string        `json:"gender"`
	AccountNumber       *string        `json:"accountNumber"`
	Name                *string        `json:"name"`
	DateOfBirth         dateView       `json:"dateOfBirth"`
	Email               *string        `json:"email"`
	BackupEmail         *string        `json:"backupEmail"`
	MobilePhone         *string        `json:"mobilePhone"`
	Enrollment          enrollmentView `json:"enrollment"`
	School              schoolView     `json:"school"`
	DurationOfStudy     *string        `json:"durationOfStudy"`
	DepartmentInstitute *string        `json:"departmentInstitute"`
	YearClass           *string        `json:"yearClass"`
	StudentID           *string        `json:"studentId"`
	AgreedToTerms       bool           `json:"agreedToTerms"`
	CareerPath          *careerPathDTO `json:"careerPath"`
}

type userView struct {
	ID         string      `json:"id"`
	Username   string      `json:"username"`
	Department string      `json:"department"`
	Profile    profileView `json:"profile"`
}

// strOrNil/intOrNil — пустое значение отдаётся клиенту как null.
func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intOrNil(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func profileFromModel(p models.Profile) profileView {
	out := profileView{
		Identity:            strOrNil(string(p.Status)),
		Gender:              strOrNil(string(p.Gender)),
		AccountNumber:       strOrNil(p.AccountNumber),
		Name:                strOrNil(p.Name),
		DateOfBirth:         dateView{Year: intOrNil(p.DateOfBirth.Year), Month: intOrNil(p.DateOfBirth.Month), Day: intOrNil(p.DateOfBirth.Day)},
		Email:               strOrNil(p.Email),
		BackupEmail:         strOrNil(p.BackupEmail),
		MobilePhone:         strOrNil(p.MobilePhone),
		Enrollment:          enrollmentView{Year: intOrNil(p.Enrollment.Year), Level: strOrNil(p.Enrollment.Level)},
		School:              schoolView{City: strOrNil(p.School.City), Name: strOrNil(p.School.Name)},
		DurationOfStudy:     strOrNil(p.DurationOfStudy),
		DepartmentInstitute: strOrNil(p.DepartmentInstitute),
		YearClass:           strOrNil(p.YearClass),
		StudentID:           strOrNil(p.StudentID),
		AgreedToTerms:       p.AgreedToTerms,
	}

	if cp := p.CareerPath; cp.AISummary != "" || len(cp.RecommendedCourses) > 0 {
		courses := cp.RecommendedCourses
		if courses == nil {
			courses = []string{}
		}
		out.CareerPath = &careerPathDTO{AISummary: cp.AISummary, RecommendedCourses: courses}
	}

	return out
}

func userFromModel(u *models.User) userView {
	return userView{
		ID:         u.ID.String(),
		Username:   u.Username,
		Department: u.Department,
		Profile:    profileFromModel(u.Profile),
	}
}

type authResponse struct {
	Success      bool     `json:"success"`
	User         userView `json:"user"`
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
}

type refreshResponse struct {
	Success     bool   `json:"success"`
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type profileResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	User    userView `json:"user"`
}

type recommendationView struct {
	Field       models.Category `json:"field"`
	Score       float64         `json:"score"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Careers     []string        `json:"careers"`
}

type resultsView struct {
	TopRecommendations []recommendationView  `json:"topRecommendations"`
	CategoryScores     models.CategoryScores `json:"categoryScores"`
}

type resultView struct {
	ID          string         `json:"id"`
	UserID      string         `json:"userId"`
	Answers     models.Answers `json:"answers"`
	Results     resultsView    `json:"results"`
	CompletedAt time.Time      `json:"completedAt"`
}

func resultFromModel(r *models.QuizResult) resultView {
	recs := make([]recommendationView, 0, len(r.TopRecommendations))
	for _, rec := range r.TopRecommendations {
		recs = append(recs, recommendationView{
			Field:       rec.Field,
			Score:       rec.Score,
			Title:       rec.Title,
			Description: rec.Description,
			Careers:     rec.Careers,
		})
	}

	answers := r.Answers
	if answers == nil {
		answers = models.Answers{}
	}

	return resultView{
		ID:          r.ID.String(),
		UserID:      r.UserID.String(),
		Answers:     answers,
		Results:     resultsView{TopRecommendations: recs, CategoryScores: r.CategoryScores},
		CompletedAt: r.CompletedAt.UTC(),
	}
}

type submitResultResponse struct {
	Success    bool       `json:"success"`
	TestResult resultView `json:"testResult"`
}

type listResultsResponse struct {
	Success bool         `json:"success"`
	Results []resultView `json:"results"`
}

type exportResponse struct {
	Success   bool      `json:"success"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func exportFromLink(l *reports.Link) exportResponse {
	return exportResponse{Success: true, URL: l.URL, ExpiresAt: l.ExpiresAt.UTC()}
}

// Чат.

type chatUserDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Lang string `json:"lang"`
	Auth bool   `json:"auth"`
}

// chatContextDTO — контекст реплики. testState и latestResultSummary клиент
// присылает в свободной форме, поэтому они разбираются нестрого.
type chatContextDTO struct {
	SessionID           string          `json:"sessionId"`
	User                *chatUserDTO    `json:"user"`
	CurrentPage         string          `json:"currentPage"`
	TestState           json.RawMessage `json:"testState"`
	LatestResultSummary json.RawMessage `json:"latestResultSummary"`
}

type chatRequest struct {
	Message string          `json:"message"`
	Context *chatContextDTO `json:"context"`
}

type testStateDTO struct {
	TestID        flexString `json:"testId"`
	QuestionIndex int        `json:"questionIndex"`
	Progress      float64    `json:"progress"`
}

type summaryDTO struct {
	HasCompletedQuiz   bool     `json:"hasCompletedQuiz"`
	TopCareerField     string   `json:"topCareerField"`
	Score              float64  `json:"score"`
	MaxScore           float64  `json:"maxScore"`
	Percentage         float64  `json:"percentage"`
	AllRecommendations []string `json:"allRecommendations"`
	DetailedScores     string   `json:"detailedScores"`
}

func categoryOf(s string) models.Category {
	if c, ok := quiz.ParseCategory(s); ok {
		return c
	}
	return models.Category(s)
}

func (s summaryDTO) toModel() *models.ResultSummary {
	rankings := make([]models.Category, 0, len(s.AllRecommendations))
	for _, r := range s.AllRecommendations {
		rankings = append(rankings, categoryOf(r))
	}

	return &models.ResultSummary{
		HasCompletedQuiz: s.HasCompletedQuiz,
		TopCategory:      categoryOf(s.TopCareerField),
		TopScore:         s.Score,
		MaxScore:         s.MaxScore,
		Percentage:       int(math.Round(s.Percentage)),
		Rankings:         rankings,
		DetailedScores:   s.DetailedScores,
	}
}

// toModel переводит контекст клиента в доменный. Нераспознанные
// testState/latestResultSummary отбрасываются.
func (c *chatContextDTO) toModel() models.ChatContext {
	var out models.ChatContext
	if c == nil {
		return out
	}

	out.SessionID = c.SessionID
	out.CurrentPage = c.CurrentPage

	if u := c.User; u != nil {
		out.UserID = u.ID
		out.UserName = u.Name
		out.Language = u.Lang
		out.IsAuthenticated = u.Auth
	}

	if present(c.TestState) {
		var ts testStateDTO
		if json.Unmarshal(c.TestState, &ts) == nil {
			out.TestState = &models.TestState{
				TestID:        string(ts.TestID),
				QuestionIndex: ts.QuestionIndex,
				Progress:      ts.Progress,
			}
		}
	}

	if present(c.LatestResultSummary) {
		var s summaryDTO
		if json.Unmarshal(c.LatestResultSummary, &s) == nil {
			out.Summary = s.toModel()
		}
	}

	return out
}

func present(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) > 0 && !bytes.Equal(s, []byte("null"))
}

type chatMetadata struct {
	Confidence float64 `json:"confidence"`
	Model      string  `json:"model,omitempty"`
}

type chatResponse struct {
	Reply        string       `json:"reply"`
	Action       *string      `json:"action"`
	QuickReplies []string     `json:"quickReplies"`
	Metadata     chatMetadata `json:"metadata"`
}

func chatFromModel(r models.ChatReply) chatResponse {
	quick := r.QuickReplies
	if quick == nil {
		quick = []string{}
	}

	return chatResponse{
		Reply:        r.Reply,
		QuickReplies: quick,
		Metadata:     chatMetadata{Confidence: r.Confidence, Model: r.Model},
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Uptime    float64   `json:"uptime"`
}
