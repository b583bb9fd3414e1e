package chat

import (
	"strings"

	"github.com/pribylovaa/go-career-advisor/internal/models"
)

// QuickReplies подбирает варианты быстрых ответов по ключевым словам сообщения.
// Срабатывает первое подходящее правило.
func QuickReplies(message string, cc models.ChatContext) []string {
	msg := strings.ToLower(message)
	completed := cc.Summary != nil && cc.Summary.HasCompletedQuiz

	switch {
	case containsAny(msg, "career", "job", "result"):
		if completed {
			return []string{"Skills to develop", "Interview preparation", "Job search tips"}
		}
		return []string{"Take the career quiz", "What careers are trending?"}
	case containsAny(msg, "interview"):
		return []string{"Common interview questions", "Technical interview tips", "Salary negotiation"}
	case containsAny(msg, "resume", "cv"):
		return []string{"Resume format tips", "What to include", "LinkedIn optimization"}
	case containsAny(msg, "skill", "learn"):
		return []string{"Free learning resources", "Recommended certifications", "Project ideas"}
	case completed:
		return []string{"Explain my results", "Career advice", "Next steps"}
	default:
		return []string{"Take career quiz", "How does the quiz work?", "Career options"}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
