package service

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pribylovaa/go-career-advisor/internal/models"
)

const (
	minUsernameLen   = 3
	maxUsernameLen   = 50
	minPasswordLen   = 6
	maxPasswordBytes = 72

	minBirthYear = 1900
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(s string) bool {
	return emailRe.MatchString(s)
}

func validateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return invalid("Username must be between 3 and 50 characters")
	}

	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return invalid("Password must be at least 6 characters long")
	}

	// bcrypt учитывает только первые 72 байта.
	if len(password) > maxPasswordBytes {
		return invalid("Password must be at most 72 bytes long")
	}

	return nil
}

// validateProfile проверяет перечисления, дату рождения и email-адреса анкеты.
// Пустые поля допустимы.
func validateProfile(p *models.Profile, now time.Time) error {
	if !p.Status.Valid() {
		return invalid("Invalid identity value")
	}

	if !p.Gender.Valid() {
		return invalid("Invalid gender value")
	}

	if err := validateDate(p.DateOfBirth, now); err != nil {
		return err
	}

	if p.Email != "" && !validEmail(p.Email) {
		return invalid("Invalid email format")
	}

	if p.BackupEmail != "" && !validEmail(p.BackupEmail) {
		return invalid("Invalid backup email format")
	}

	return nil
}

// validateDate: год в [1900, текущий], месяц 1..12, день 1..31.
func validateDate(d models.Date, now time.Time) error {
	if d.Year != 0 && (d.Year < minBirthYear || d.Year > now.Year()) {
		return invalid("Invalid birth year")
	}

	if d.Month != 0 && (d.Month < 1 || d.Month > 12) {
		return invalid("Invalid birth month")
	}

	if d.Day != 0 && (d.Day < 1 || d.Day > 31) {
		return invalid("Invalid birth day")
	}

	return nil
}

// normalizeProfile обрезает пробелы в строковых полях.
func normalizeProfile(p *models.Profile) {
	for _, f := range []*string{
		&p.AccountNumber, &p.Name, &p.Email, &p.BackupEmail, &p.MobilePhone,
		&p.Enrollment.Level, &p.School.City, &p.School.Name, &p.DurationOfStudy,
		&p.DepartmentInstitute, &p.YearClass, &p.StudentID,
	} {
		*f = strings.TrimSpace(*f)
	}
}
