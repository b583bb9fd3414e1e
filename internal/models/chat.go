package models

// ChatContext — контекст реплики пользователя в чате.
type ChatContext struct {
	SessionID       string
	UserName        string
	UserID          string
	Language        string
	IsAuthenticated bool
	CurrentPage     string
	TestState       *TestState
	Summary         *ResultSummary
}

// TestState — положение пользователя в незавершённом тесте.
type TestState struct {
	TestID        string
	QuestionIndex int
	// Progress — доля пройденного теста в диапазоне [0, 1].
	Progress float64
}

// ChatReply — ответ ассистента. Confidence == 0 означает fallback-ответ.
type ChatReply struct {
	Reply        string
	QuickReplies []string
	Confidence   float64
	Model        string
	Fallback     bool
}
