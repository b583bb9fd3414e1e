package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-career-advisor/internal/chat"
	"github.com/pribylovaa/go-career-advisor/internal/config"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/service"
	"github.com/pribylovaa/go-career-advisor/internal/storage"
	"github.com/pribylovaa/go-career-advisor/mocks"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// testEnv — роутер поверх настоящего сервиса с замоканными хранилищем и ассистентом.
type testEnv struct {
	handler http.Handler
	svc     *service.Service
	st      *mocks.MockStorage
	ai      *mocks.MockAssistant
}

func newEnv(t *testing.T, basePath string) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockStorage(ctrl)
	ai := mocks.NewMockAssistant(ctrl)

	svc, err := service.New(st, config.AuthConfig{
		AccessSecret:    "http-access-secret",
		RefreshSecret:   "http-refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "career-advisor",
		Audience:        []string{"career-web"},
	}, config.QuizConfig{Questions: 3})
	require.NoError(t, err)

	bot := chat.NewBot(ai, "gemini-test", time.Second)

	return &testEnv{
		handler: NewRouter(svc, bot, Options{
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
			Timeout:  5 * time.Second,
			BasePath: basePath,
		}),
		svc: svc,
		st:  st,
		ai:  ai,
	}
}

// signIn выпускает пару токенов для нового пользователя.
func (e *testEnv) signIn(t *testing.T) (*models.User, *models.TokenPair) {
	t.Helper()

	user := &models.User{ID: uuid.New(), Username: "alice", Department: "CS"}
	e.st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	pair, err := e.svc.IssueTokenPair(context.Background(), user)
	require.NoError(t, err)
	return user, pair
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

// requireError проверяет конверт ошибки {success:false, message}.
func requireError(t *testing.T, rr *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()

	require.Equal(t, status, rr.Code, rr.Body.String())
	body := decode(t, rr)
	require.Equal(t, false, body["success"])
	require.Equal(t, msg, body["message"])
	require.NotEmpty(t, body["request_id"])
}

func TestRegister_OK(t *testing.T) {
	e := newEnv(t, "")

	var saved *models.User
	e.st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(nil, storage.ErrNotFound)
	e.st.EXPECT().SaveUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		})
	e.st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rr := e.do(t, http.MethodPost, "/register", `{
		"username": "alice",
		"password": "secret1",
		"department": "CS",
		"identity": "student",
		"dateOfBirth": {"year": "2001", "month": 5, "day": 17},
		"yearClass": 3,
		"enrollmentYear": null,
		"agreedToTerms": true
	}`, "")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotEmpty(t, rr.Header().Get("X-Request-Id"))

	body := decode(t, rr)
	require.Equal(t, true, body["success"])
	require.NotEmpty(t, body["accessToken"])
	require.NotEmpty(t, body["refreshToken"])

	user := body["user"].(map[string]any)
	require.Equal(t, saved.ID.String(), user["id"])
	require.Equal(t, "alice", user["username"])

	profile := user["profile"].(map[string]any)
	require.Equal(t, "student", profile["identity"])
	require.Equal(t, "3", profile["yearClass"])
	require.Equal(t, true, profile["agreedToTerms"])
	require.Nil(t, profile["email"])
	require.Nil(t, profile["careerPath"])
	require.Equal(t, float64(2001), profile["dateOfBirth"].(map[string]any)["year"])

	require.Equal(t, models.Date{Year: 2001, Month: 5, Day: 17}, saved.Profile.DateOfBirth)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(saved.PasswordHash), []byte("secret1")))
}

func TestRegister_DuplicateUsername(t *testing.T) {
	e := newEnv(t, "")

	e.st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(&models.User{ID: uuid.New(), Username: "alice"}, nil)

	rr := e.do(t, http.MethodPost, "/register", `{"username":"alice","password":"secret1","department":"CS"}`, "")
	requireError(t, rr, http.StatusBadRequest, "Username already exists")
}

func TestRegister_BadBodies(t *testing.T) {
	e := newEnv(t, "")

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"unknown_field", `{"username":"alice","password":"secret1","department":"CS","role":"admin"}`, "Invalid request body"},
		{"broken_json", `{"username":`, "Invalid request body"},
		{"trailing_data", `{"username":"alice"} {}`, "Invalid request body"},
		{"missing_fields", `{"username":"alice"}`, "Missing required fields: username, password and department"},
		{"short_password", `{"username":"alice","password":"123","department":"CS"}`, "Password must be at least 6 characters long"},
		{"bad_email", `{"username":"alice","password":"secret1","department":"CS","email":"nope"}`, "Invalid email format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := e.do(t, http.MethodPost, "/register", tt.body, "")
			requireError(t, rr, http.StatusBadRequest, tt.msg)
		})
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t, "")

	hash, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Username: "alice", PasswordHash: string(hash), Department: "CS"}

	e.st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(user, nil).Times(2)
	e.st.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	rr := e.do(t, http.MethodPost, "/login", `{"username":"alice","password":"secret1"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	id, err := e.svc.VerifyAccess(body["accessToken"].(string))
	require.NoError(t, err)
	require.Equal(t, user.ID, id.UserID)

	rr = e.do(t, http.MethodPost, "/login", `{"username":"alice","password":"wrong-one"}`, "")
	requireError(t, rr, http.StatusUnauthorized, "Invalid credentials")

	rr = e.do(t, http.MethodPost, "/login", `{"username":"","password":""}`, "")
	requireError(t, rr, http.StatusBadRequest, "Username and password are required")
}

func TestRefresh(t *testing.T) {
	e := newEnv(t, "")
	user, pair := e.signIn(t)

	e.st.EXPECT().RefreshTokenByHash(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, hash string) (*models.RefreshToken, error) {
			return &models.RefreshToken{Hash: hash, UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}, nil
		})

	rr := e.do(t, http.MethodPost, "/refresh", `{"refreshToken":"`+pair.RefreshToken+`"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decode(t, rr)
	require.Equal(t, true, body["success"])
	_, err := e.svc.VerifyAccess(body["accessToken"].(string))
	require.NoError(t, err)

	// access-токен вместо refresh
	rr = e.do(t, http.MethodPost, "/refresh", `{"refreshToken":"`+pair.AccessToken+`"}`, "")
	requireError(t, rr, http.StatusUnauthorized, "Invalid or expired refresh token")

	rr = e.do(t, http.MethodPost, "/refresh", `{}`, "")
	requireError(t, rr, http.StatusBadRequest, "Refresh token required")
}

func TestLogout_AlwaysSucceeds(t *testing.T) {
	e := newEnv(t, "")

	e.st.EXPECT().DeleteRefreshToken(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	for _, body := range []string{"", `{}`, `{"refreshToken":"whatever"}`} {
		rr := e.do(t, http.MethodPost, "/logout", body, "")
		require.Equal(t, http.StatusOK, rr.Code, body)
		require.Equal(t, "Logged out successfully", decode(t, rr)["message"])
	}
}

func TestProtected_RequiresToken(t *testing.T) {
	e := newEnv(t, "")
	uid := uuid.New().String()

	rr := e.do(t, http.MethodGet, "/test-results/"+uid, "", "")
	requireError(t, rr, http.StatusUnauthorized, "Unauthorized")

	rr = e.do(t, http.MethodGet, "/test-results/"+uid, "", "garbage")
	requireError(t, rr, http.StatusUnauthorized, "Unauthorized")
}

func TestSubmitResult(t *testing.T) {
	e := newEnv(t, "")
	user, pair := e.signIn(t)

	e.st.EXPECT().SaveResult(gomock.Any(), gomock.Any()).Return(nil)

	rr := e.do(t, http.MethodPost, "/test-results", `{
		"userId": "`+user.ID.String()+`",
		"answers": {"0": "technical", "1": "technical", "2": "business"},
		"results": {"categoryScores": {"Creative": 99}}
	}`, pair.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	tr := body["testResult"].(map[string]any)
	require.Equal(t, user.ID.String(), tr["userId"])

	results := tr["results"].(map[string]any)
	require.Equal(t, map[string]any{
		"Technical":         float64(2),
		"Business":          float64(1),
		"Creative":          float64(0),
		"Interdisciplinary": float64(0),
	}, results["categoryScores"])

	top := results["topRecommendations"].([]any)
	require.Len(t, top, 4)
	require.Equal(t, "Technical", top[0].(map[string]any)["field"])
}

func TestSubmitResult_Rejects(t *testing.T) {
	e := newEnv(t, "")
	user, pair := e.signIn(t)

	// userId в теле не совпадает с владельцем токена
	rr := e.do(t, http.MethodPost, "/test-results",
		`{"userId":"`+uuid.NewString()+`","answers":{"0":"technical"}}`, pair.AccessToken)
	requireError(t, rr, http.StatusForbidden, "Forbidden")

	rr = e.do(t, http.MethodPost, "/test-results", `{"userId":"`+user.ID.String()+`"}`, pair.AccessToken)
	requireError(t, rr, http.StatusBadRequest, "Missing fields")

	rr = e.do(t, http.MethodPost, "/test-results",
		`{"userId":"`+user.ID.String()+`","answers":{"0":"technical"},"weights":{"technical":{"Cooking":1}}}`, pair.AccessToken)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
	require.Contains(t, decode(t, rr)["message"], "unknown category")
}

func TestListResults(t *testing.T) {
	e := newEnv(t, "")
	user, pair := e.signIn(t)

	rr := e.do(t, http.MethodGet, "/test-results/"+uuid.NewString(), "", pair.AccessToken)
	requireError(t, rr, http.StatusForbidden, "Forbidden")

	completed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	e.st.EXPECT().ResultsByUser(gomock.Any(), user.ID).Return([]models.QuizResult{{
		ID:             uuid.New(),
		UserID:         user.ID,
		Answers:        models.Answers{"0": "creative"},
		CategoryScores: models.CategoryScores{models.CategoryCreative: 1},
		TopRecommendations: []models.Recommendation{
			{Field: models.CategoryCreative, Score: 1, Title: "Creative", Careers: []string{"Designer"}},
		},
		CompletedAt: completed,
	}}, nil)

	rr = e.do(t, http.MethodGet, "/test-results/"+user.ID.String(), "", pair.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	results := decode(t, rr)["results"].([]any)
	require.Len(t, results, 1)
	first := results[0].(map[string]any)
	require.Equal(t, "2026-03-01T10:00:00Z", first["completedAt"])
	require.Equal(t, map[string]any{"0": "creative"}, first["answers"])
}

func TestExportResult_NoObjectStore(t *testing.T) {
	e := newEnv(t, "")
	user, pair := e.signIn(t)

	rr := e.do(t, http.MethodPost, "/test-results/"+user.ID.String()+"/"+uuid.NewString()+"/export", "", pair.AccessToken)
	requireError(t, rr, http.StatusServiceUnavailable, "Service unavailable")
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t, "")
	user, pair := e.signIn(t)
	user.Profile.AgreedToTerms = true

	e.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	e.st.EXPECT().UpdateProfile(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, p models.Profile, _ time.Time) (*models.User, error) {
			u := *user
			u.Profile = p
			return &u, nil
		})

	rr := e.do(t, http.MethodPut, "/users/"+user.ID.String()+"/profile", `{
		"name": "Alice",
		"email": "alice@example.com",
		"schoolCity": "Taipei",
		"careerPath": {"aiSummary": "Go backend", "recommendedCourses": ["Distributed systems"]},
		"agreedToTerms": false
	}`, pair.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	require.Equal(t, "Profile updated successfully", body["message"])
	profile := body["user"].(map[string]any)["profile"].(map[string]any)
	require.Equal(t, "Alice", profile["name"])
	require.Equal(t, "Taipei", profile["school"].(map[string]any)["city"])
	require.Equal(t, true, profile["agreedToTerms"])
	require.Equal(t, "Go backend", profile["careerPath"].(map[string]any)["aiSummary"])
}

func TestUpdateProfile_Errors(t *testing.T) {
	e := newEnv(t, "")
	user, pair := e.signIn(t)
	path := "/users/" + user.ID.String() + "/profile"

	rr := e.do(t, http.MethodPut, "/users/"+uuid.NewString()+"/profile", `{}`, pair.AccessToken)
	requireError(t, rr, http.StatusForbidden, "Forbidden")

	rr = e.do(t, http.MethodPut, path, `{"backupEmail":"broken"}`, pair.AccessToken)
	requireError(t, rr, http.StatusBadRequest, "Invalid backup email format")

	e.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(nil, storage.ErrNotFound)
	rr = e.do(t, http.MethodPut, path, `{}`, pair.AccessToken)
	requireError(t, rr, http.StatusNotFound, "User not found")

	e.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(nil, errors.New("connection reset"))
	rr = e.do(t, http.MethodPut, path, `{}`, pair.AccessToken)
	requireError(t, rr, http.StatusInternalServerError, "Internal server error")
	require.NotContains(t, rr.Body.String(), "connection reset")
}

func TestChat_FallbackOnAssistantFailure(t *testing.T) {
	e := newEnv(t, "")

	e.ai.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("quota exceeded"))

	rr := e.do(t, http.MethodPost, "/chatbot/message",
		`{"message":"What careers fit me?","context":{"user":{"lang":"vi","auth":true,"id":"spoofed"},"testState":{"anything":1}}}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	require.Equal(t, chat.FallbackReply("vi"), body["reply"])
	require.NotEmpty(t, body["reply"])
	require.Nil(t, body["action"])
	require.Equal(t, float64(0), body["metadata"].(map[string]any)["confidence"])
	require.NotNil(t, body["quickReplies"])
}

func TestChat_AuthenticatedUsesStoredSummary(t *testing.T) {
	e := newEnv(t, "")
	user, pair := e.signIn(t)

	e.st.EXPECT().LatestResult(gomock.Any(), user.ID).Return(&models.QuizResult{
		UserID:  user.ID,
		Answers: models.Answers{"0": "technical", "1": "technical", "2": "business"},
		TopRecommendations: []models.Recommendation{
			{Field: models.CategoryTechnical, Score: 2},
			{Field: models.CategoryBusiness, Score: 1},
			{Field: models.CategoryCreative},
			{Field: models.CategoryInterdisciplinary},
		},
	}, nil)

	var prompt string
	e.ai.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p string) (string, error) {
			prompt = p
			return "Consider backend engineering.", nil
		})

	rr := e.do(t, http.MethodPost, "/chatbot/message", `{"message":"Hi","context":{"currentPage":"/results"}}`, pair.AccessToken)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	require.Equal(t, "Consider backend engineering.", body["reply"])
	meta := body["metadata"].(map[string]any)
	require.Equal(t, 0.9, meta["confidence"])
	require.Equal(t, "gemini-test", meta["model"])

	require.Contains(t, prompt, "Authenticated: true")
	require.Contains(t, prompt, "ID: "+user.ID.String())
	require.Contains(t, prompt, "Top Career Match: Technical")
	require.Contains(t, prompt, "Current Page: /results")
}

func TestChat_EmptyMessage(t *testing.T) {
	e := newEnv(t, "")

	rr := e.do(t, http.MethodPost, "/chatbot/message", `{"message":"   "}`, "")
	requireError(t, rr, http.StatusBadRequest, "Message is required and must be a non-empty string")
}

func TestHealthAndRouting(t *testing.T) {
	e := newEnv(t, "/api")

	e.st.EXPECT().Ping(gomock.Any()).Return(nil)
	rr := e.do(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "connected", body["database"])

	rr = e.do(t, http.MethodGet, "/health", "", "")
	requireError(t, rr, http.StatusNotFound, "Route not found")

	rr = e.do(t, http.MethodGet, "/api/register", "", "")
	requireError(t, rr, http.StatusMethodNotAllowed, "Method not allowed")
}

func TestRecoverWrapsHandlers(t *testing.T) {
	e := newEnv(t, "")

	e.st.EXPECT().Ping(gomock.Any()).DoAndReturn(func(context.Context) error { panic("boom") })

	rr := e.do(t, http.MethodGet, "/health", "", "")
	requireError(t, rr, http.StatusInternalServerError, "Internal server error")
}
