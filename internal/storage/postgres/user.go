package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
)

// profileJSON — представление профиля в колонке JSONB.
type profileJSON struct {
	Identity            string     `json:"identity,omitempty"`
	Gender              string     `json:"gender,omitempty"`
	AccountNumber       string     `json:"accountNumber,omitempty"`
	Name                string     `json:"name,omitempty"`
	DateOfBirth         *dateJSON  `json:"dateOfBirth,omitempty"`
	Email               string     `json:"email,omitempty"`
	BackupEmail         string     `json:"backupEmail,omitempty"`
	MobilePhone         string     `json:"mobilePhone,omitempty"`
	EnrollmentYear      int        `json:"enrollmentYear,omitempty"`
	EnrollmentLevel     string     `json:"enrollmentLevel,omitempty"`
	SchoolCity          string     `json:"schoolCity,omitempty"`
	SchoolName          string     `json:"schoolName,omitempty"`
	DurationOfStudy     string     `json:"durationOfStudy,omitempty"`
	DepartmentInstitute string     `json:"departmentInstitute,omitempty"`
	YearClass           string     `json:"yearClass,omitempty"`
	StudentID           string     `json:"studentId,omitempty"`
	AgreedToTerms       bool       `json:"agreedToTerms"`
	CareerPath          careerJSON `json:"careerPath"`
}

type dateJSON struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

type careerJSON struct {
	AISummary          string   `json:"aiSummary,omitempty"`
	RecommendedCourses []string `json:"recommendedCourses,omitempty"`
}

func toProfileJSON(p models.Profile) profileJSON {
	out := profileJSON{
		Identity:            string(p.Status),
		Gender:              string(p.Gender),
		AccountNumber:       p.AccountNumber,
		Name:                p.Name,
		Email:               p.Email,
		BackupEmail:         p.BackupEmail,
		MobilePhone:         p.MobilePhone,
		EnrollmentYear:      p.Enrollment.Year,
		EnrollmentLevel:     p.Enrollment.Level,
		SchoolCity:          p.School.City,
		SchoolName:          p.School.Name,
		DurationOfStudy:     p.DurationOfStudy,
		DepartmentInstitute: p.DepartmentInstitute,
		YearClass:           p.YearClass,
		StudentID:           p.StudentID,
		AgreedToTerms:       p.AgreedToTerms,
		CareerPath: careerJSON{
			AISummary:          p.CareerPath.AISummary,
			RecommendedCourses: p.CareerPath.RecommendedCourses,
		},
	}

	if !p.DateOfBirth.IsZero() {
		out.DateOfBirth = &dateJSON{Year: p.DateOfBirth.Year, Month: p.DateOfBirth.Month, Day: p.DateOfBirth.Day}
	}

	return out
}

func (p profileJSON) toModel() models.Profile {
	out := models.Profile{
		Status:              models.Status(p.Identity),
		Gender:              models.Gender(p.Gender),
		AccountNumber:       p.AccountNumber,
		Name:                p.Name,
		Email:               p.Email,
		BackupEmail:         p.BackupEmail,
		MobilePhone:         p.MobilePhone,
		Enrollment:          models.Enrollment{Year: p.EnrollmentYear, Level: p.EnrollmentLevel},
		School:              models.School{City: p.SchoolCity, Name: p.SchoolName},
		DurationOfStudy:     p.DurationOfStudy,
		DepartmentInstitute: p.DepartmentInstitute,
		YearClass:           p.YearClass,
		StudentID:           p.StudentID,
		AgreedToTerms:       p.AgreedToTerms,
		CareerPath: models.CareerPath{
			AISummary:          p.CareerPath.AISummary,
			RecommendedCourses: p.CareerPath.RecommendedCourses,
		},
	}

	if p.DateOfBirth != nil {
		out.DateOfBirth = models.Date{Year: p.DateOfBirth.Year, Month: p.DateOfBirth.Month, Day: p.DateOfBirth.Day}
	}

	return out
}

const userColumns = `id, username, password_hash, department, profile, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		user    models.User
		profile profileJSON
	)

	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Department,
		&profile,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	user.Profile = profile.toModel()
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()

	return &user, nil
}

// SaveUser создаёт нового пользователя в БД.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users(id, username, password_hash, department, profile, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Department,
		toProfileJSON(user.Profile),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UserByUsername находит пользователя по имени.
func (s *Storage) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.postgres.UserByUsername"

	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}

	return user, nil
}

// UserByID находит пользователя по ID.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	user, err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}

	return user, nil
}

// UpdateProfile заменяет профиль целиком.
func (s *Storage) UpdateProfile(ctx context.Context, id uuid.UUID, profile models.Profile, updatedAt time.Time) (*models.User, error) {
	const op = "storage.postgres.UpdateProfile"

	query := `
		UPDATE users SET profile = $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(s.db.QueryRow(ctx, query, id, toProfileJSON(profile), updatedAt))
	if err != nil {
		return nil, wrapNoRows(op, err)
	}

	return user, nil
}

func wrapNoRows(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return fmt.Errorf("%s: %w", op, err)
}
