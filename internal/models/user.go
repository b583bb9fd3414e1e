// models содержит доменные сущности сервиса.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Status — статус занятости пользователя из анкеты.
// Пустое значение означает «не указано».
type Status string

const (
	StatusUnspecified Status = ""
	StatusStudent     Status = "student"
	StatusUnemployed  Status = "Unemployed"
	StatusEmployed    Status = "employed"
)

// Valid сообщает, входит ли значение в допустимый набор.
func (s Status) Valid() bool {
	switch s {
	case StatusUnspecified, StatusStudent, StatusUnemployed, StatusEmployed:
		return true
	default:
		return false
	}
}

// Gender — пол пользователя; пустое значение — не указан.
type Gender string

const (
	GenderUnspecified Gender = ""
	GenderFemale      Gender = "female"
	GenderMale        Gender = "male"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderUnspecified, GenderFemale, GenderMale:
		return true
	default:
		return false
	}
}

// User — учётная запись. Имя пользователя уникально, записи не удаляются.
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Department   string
	Profile      Profile
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile — анкетные данные пользователя. Все поля опциональны.
type Profile struct {
	Status              Status
	Gender              Gender
	AccountNumber       string
	Name                string
	DateOfBirth         Date
	Email               string
	BackupEmail         string
	MobilePhone         string
	Enrollment          Enrollment
	School              School
	DurationOfStudy     string
	DepartmentInstitute string
	YearClass           string
	StudentID           string
	AgreedToTerms       bool
	CareerPath          CareerPath
}

// Date — дата без времени; нулевые поля означают «не указано».
type Date struct {
	Year  int
	Month int
	Day   int
}

// IsZero — дата не заполнена.
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

type Enrollment struct {
	Year  int
	Level string
}

type School struct {
	City string
	Name string
}

// CareerPath — сохранённые рекомендации по траектории обучения.
type CareerPath struct {
	AISummary          string
	RecommendedCourses []string
}
