package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDoc struct {
	ID           string     `bson:"_id"`
	Username     string     `bson:"username"`
	PasswordHash string     `bson:"password_hash"`
	Department   string     `bson:"department"`
	Profile      profileDoc `bson:"profile"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

type profileDoc struct {
	Identity            string   `bson:"identity,omitempty"`
	Gender              string   `bson:"gender,omitempty"`
	AccountNumber       string   `bson:"account_number,omitempty"`
	Name                string   `bson:"name,omitempty"`
	BirthYear           int      `bson:"birth_year,omitempty"`
	BirthMonth          int      `bson:"birth_month,omitempty"`
	BirthDay            int      `bson:"birth_day,omitempty"`
	Email               string   `bson:"email,omitempty"`
	BackupEmail         string   `bson:"backup_email,omitempty"`
	MobilePhone         string   `bson:"mobile_phone,omitempty"`
	EnrollmentYear      int      `bson:"enrollment_year,omitempty"`
	EnrollmentLevel     string   `bson:"enrollment_level,omitempty"`
	SchoolCity          string   `bson:"school_city,omitempty"`
	SchoolName          string   `bson:"school_name,omitempty"`
	DurationOfStudy     string   `bson:"duration_of_study,omitempty"`
	DepartmentInstitute string   `bson:"department_institute,omitempty"`
	YearClass           string   `bson:"year_class,omitempty"`
	StudentID           string   `bson:"student_id,omitempty"`
	AgreedToTerms       bool     `bson:"agreed_to_terms"`
	AISummary           string   `bson:"ai_summary,omitempty"`
	RecommendedCourses  []string `bson:"recommended_courses,omitempty"`
}

func profileToDoc(p models.Profile) profileDoc {
	return profileDoc{
		Identity:            string(p.Status),
		Gender:              string(p.Gender),
		AccountNumber:       p.AccountNumber,
		Name:                p.Name,
		BirthYear:           p.DateOfBirth.Year,
		BirthMonth:          p.DateOfBirth.Month,
		BirthDay:            p.DateOfBirth.Day,
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
		AISummary:           p.CareerPath.AISummary,
		RecommendedCourses:  p.CareerPath.RecommendedCourses,
	}
}

func (d profileDoc) toModel() models.Profile {
	return models.Profile{
		Status:              models.Status(d.Identity),
		Gender:              models.Gender(d.Gender),
		AccountNumber:       d.AccountNumber,
		Name:                d.Name,
		DateOfBirth:         models.Date{Year: d.BirthYear, Month: d.BirthMonth, Day: d.BirthDay},
		Email:               d.Email,
		BackupEmail:         d.BackupEmail,
		MobilePhone:         d.MobilePhone,
		Enrollment:          models.Enrollment{Year: d.EnrollmentYear, Level: d.EnrollmentLevel},
		School:              models.School{City: d.SchoolCity, Name: d.SchoolName},
		DurationOfStudy:     d.DurationOfStudy,
		DepartmentInstitute: d.DepartmentInstitute,
		YearClass:           d.YearClass,
		StudentID:           d.StudentID,
		AgreedToTerms:       d.AgreedToTerms,
		CareerPath: models.CareerPath{
			AISummary:          d.AISummary,
			RecommendedCourses: d.RecommendedCourses,
		},
	}
}

func (d userDoc) toModel() (*models.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", d.ID, err)
	}

	return &models.User{
		ID:           id,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		Department:   d.Department,
		Profile:      d.Profile.toModel(),
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

func (m *Mongo) SaveUser(ctx context.Context, user *models.User) error {
	const op = "storage.mongo.SaveUser"

	doc := userDoc{
		ID:           user.ID.String(),
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		Department:   user.Department,
		Profile:      profileToDoc(user.Profile),
		CreatedAt:    user.CreatedAt.UTC(),
		UpdatedAt:    user.UpdatedAt.UTC(),
	}

	if _, err := m.users.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (m *Mongo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.mongo.UserByUsername"

	return m.findUser(ctx, op, bson.M{"username": username})
}

func (m *Mongo) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.mongo.UserByID"

	return m.findUser(ctx, op, bson.M{"_id": id.String()})
}

func (m *Mongo) findUser(ctx context.Context, op string, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := m.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateProfile заменяет поддокумент profile одной атомарной операцией.
func (m *Mongo) UpdateProfile(ctx context.Context, id uuid.UUID, profile models.Profile, updatedAt time.Time) (*models.User, error) {
	const op = "storage.mongo.UpdateProfile"

	update := bson.M{"$set": bson.M{
		"profile":    profileToDoc(profile),
		"updated_at": updatedAt.UTC(),
	}}

	var doc userDoc
	err := m.users.FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := doc.toModel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}
