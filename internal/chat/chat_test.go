package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/mocks"
	"github.com/stretchr/testify/require"
)

func TestReply_AI(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	a := mocks.NewMockAssistant(ctrl)
	bot := NewBot(a, "gemini-2.5-flash", time.Second)

	a.EXPECT().Complete(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, prompt string) (string, error) {
			_, ok := ctx.Deadline()
			require.True(t, ok)
			require.Contains(t, prompt, "User Message: How do I prepare for an interview?")
			return "Practice STAR answers.", nil
		})

	got, err := bot.Reply(context.Background(), "How do I prepare for an interview?", models.ChatContext{})
	require.NoError(t, err)
	require.Equal(t, "Practice STAR answers.", got.Reply)
	require.Equal(t, 0.9, got.Confidence)
	require.Equal(t, "gemini-2.5-flash", got.Model)
	require.False(t, got.Fallback)
	require.Equal(t, []string{"Common interview questions", "Technical interview tips", "Salary negotiation"}, got.QuickReplies)
}

func TestReply_Fallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		err   error
		lang  string
		want  string
	}{
		{name: "error_en", err: errors.New("upstream 503"), lang: "", want: fallbackReplies[LangEnglish]},
		{name: "error_zh", err: context.DeadlineExceeded, lang: "zh-TW", want: fallbackReplies[LangChinese]},
		{name: "blank_vi", reply: "  ", lang: "vi", want: fallbackReplies[LangVietnamese]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			a := mocks.NewMockAssistant(ctrl)
			a.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(tt.reply, tt.err)

			got, err := NewBot(a, "m", 0).Reply(context.Background(), "hello", models.ChatContext{Language: tt.lang})
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Reply)
			require.Zero(t, got.Confidence)
			require.True(t, got.Fallback)
			require.NotEmpty(t, got.QuickReplies)
		})
	}
}

func TestReply_NoAssistant(t *testing.T) {
	t.Parallel()

	got, err := NewBot(nil, "", 0).Reply(context.Background(), "hi", models.ChatContext{})
	require.NoError(t, err)
	require.True(t, got.Fallback)
	require.NotEmpty(t, got.Reply)
}

func TestReply_EmptyMessage(t *testing.T) {
	t.Parallel()

	_, err := NewBot(nil, "", 0).Reply(context.Background(), " \n\t", models.ChatContext{})
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestQuickReplies(t *testing.T) {
	t.Parallel()

	done := models.ChatContext{Summary: &models.ResultSummary{HasCompletedQuiz: true}}
	none := models.ChatContext{}

	tests := []struct {
		name string
		msg  string
		cc   models.ChatContext
		want []string
	}{
		{"career_done", "What CAREER fits me?", done, []string{"Skills to develop", "Interview preparation", "Job search tips"}},
		{"career_none", "show my results", none, []string{"Take the career quiz", "What careers are trending?"}},
		{"interview", "interview tips", none, []string{"Common interview questions", "Technical interview tips", "Salary negotiation"}},
		{"resume", "check my CV", none, []string{"Resume format tips", "What to include", "LinkedIn optimization"}},
		{"skills", "what should I learn", none, []string{"Free learning resources", "Recommended certifications", "Project ideas"}},
		{"default_done", "hello", done, []string{"Explain my results", "Career advice", "Next steps"}},
		{"default_none", "hello", none, []string{"Take career quiz", "How does the quiz work?", "Career options"}},
		// Первое правило выигрывает: "job" раньше "interview".
		{"first_rule_wins", "job interview", none, []string{"Take the career quiz", "What careers are trending?"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, QuickReplies(tt.msg, tt.cc))
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	cc := models.ChatContext{
		UserName:        "Alice",
		UserID:          "u-1",
		Language:        "zh-TW",
		IsAuthenticated: true,
		CurrentPage:     "/results",
		TestState:       &models.TestState{TestID: "t1", QuestionIndex: 2, Progress: 0.4},
		Summary: &models.ResultSummary{
			HasCompletedQuiz: true,
			TopCategory:      models.CategoryTechnical,
			TopScore:         2,
			MaxScore:         4,
			Percentage:       50,
			Rankings:         []models.Category{models.CategoryTechnical, models.CategoryBusiness},
			DetailedScores:   "Technical: 2, Business: 1",
		},
	}

	p := BuildPrompt("Hi", cc)

	require.Contains(t, p, SystemPrompt)
	require.Contains(t, p, "- User: Alice (ID: u-1, Language: zh-TW, Authenticated: true)\n")
	require.Contains(t, p, "- Current Page: /results\n")
	require.Contains(t, p, "- Test State: Test ID t1, Question 3, Progress: 40%\n")
	require.Contains(t, p, "- Has Completed Quiz: Yes\n")
	require.Contains(t, p, "  * Top Score: 2/4 (50% match)\n")
	require.Contains(t, p, "  * Career Rankings: Technical > Business\n")
	require.Contains(t, p, "Respond in Traditional Chinese")
	require.Contains(t, p, "User Message: Hi\n\n")
}

func TestBuildPrompt_Guest(t *testing.T) {
	t.Parallel()

	p := BuildPrompt("Hi", models.ChatContext{Summary: &models.ResultSummary{}})

	require.NotContains(t, p, "- User:")
	require.Contains(t, p, "- Has Completed Quiz: No\n")
	require.NotContains(t, p, "Quiz Results Summary")
	require.NotContains(t, p, "Respond in")
}
