package chat

import (
	"fmt"
	"strings"

	"github.com/pribylovaa/go-career-advisor/internal/models"
	"github.com/pribylovaa/go-career-advisor/internal/quiz"
)

// Языки, для которых есть отдельные подсказки и fallback-ответы.
const (
	LangEnglish    = "en"
	LangChinese    = "zh-TW"
	LangVietnamese = "vi"
)

// SystemPrompt — инструкция ассистенту: персона, маршруты приложения, категории теста и ограничения.
const SystemPrompt = `You are the Job Assistant for the Job Quiz web application - an AI career counselor specialized in helping users discover and pursue their ideal career paths. You provide practical, actionable job-related guidance.

App Routes (use these exact paths for navigation):
- Home: /
- Career Test: /career-test
- Results: /results
- Profile: /profile
- Login: /login
- Register: /register
- FAQ: /faq
- About: /about

Career Categories in the Quiz:
1. TECHNICAL (Software Engineering & Computer Science): Software Developer, Data Scientist, ML Engineer, Systems Architect, Cybersecurity Specialist
2. BUSINESS (Business Information Systems & IT Management): IT Project Manager, Business Analyst, IT Consultant, Product Manager, Data Analyst
3. CREATIVE (Digital Design & Media Technology): UI/UX Designer, Front-end Developer, Digital Content Creator, Interactive Media Designer, Web Designer
4. INTERDISCIPLINARY (Interdisciplinary IT & Emerging Technologies): Tech Entrepreneur, Innovation Consultant, Digital Transformation Specialist, EdTech Developer, HealthTech Specialist

Persona & tone:
- Friendly, encouraging career coach who genuinely wants to help users succeed
- Concise and practical - focus on actionable advice
- Use bullet points and numbered lists for clarity
- If the user's language is Traditional Chinese (zh-TW), respond in Traditional Chinese
- If the user's language is Vietnamese (vi), respond in Vietnamese
- When mentioning app pages, format them as markdown links using [Page Name](/route-path)
  Example: "Check out the [Results page](/results) for more details"

Provide guidance on career exploration, skill development (courses, certifications, learning roadmaps, portfolio projects), job search (resumes, LinkedIn, job boards, networking, internships), interview preparation (common and technical questions, STAR method, salary negotiation), career transitions, and interpreting quiz results.

RESPONSE GUIDELINES:
- If user has completed quiz, reference their specific results to personalize advice
- Always provide 2-3 actionable next steps
- Be encouraging but realistic about career expectations
- For salary questions, give ranges and note they vary by location/experience
- Do NOT include "Quick Replies:" or suggest follow-up questions in your response

LIMITATIONS - Do NOT:
- Make API calls or modify user data
- Provide medical, legal, or financial advice
- Ask for sensitive info (passwords, payment details, ID numbers)
- Guarantee job outcomes or make promises about employment
- Pretend to submit applications or contact employers

Always provide helpful, practical career guidance in a friendly and professional tone.`

// BuildPrompt собирает полный текст запроса: инструкция, контекст пользователя,
// подсказка о языке и сообщение.
func BuildPrompt(message string, cc models.ChatContext) string {
	var b strings.Builder

	b.WriteString(SystemPrompt)
	b.WriteString("\n\nCurrent Context:\n")

	if cc.UserName != "" || cc.UserID != "" || cc.Language != "" || cc.IsAuthenticated {
		fmt.Fprintf(&b, "- User: %s (ID: %s, Language: %s, Authenticated: %t)\n",
			orDefault(cc.UserName, "Guest"), orDefault(cc.UserID, "N/A"), orDefault(cc.Language, LangEnglish), cc.IsAuthenticated)
	}

	if cc.CurrentPage != "" {
		fmt.Fprintf(&b, "- Current Page: %s\n", cc.CurrentPage)
	}

	if ts := cc.TestState; ts != nil {
		fmt.Fprintf(&b, "- Test State: Test ID %s, Question %d, Progress: %.0f%%\n",
			ts.TestID, ts.QuestionIndex+1, ts.Progress*100)
	}

	if s := cc.Summary; s != nil {
		fmt.Fprintf(&b, "- Has Completed Quiz: %s\n", yesNo(s.HasCompletedQuiz))
		if s.HasCompletedQuiz {
			rankings := make([]string, 0, len(s.Rankings))
			for _, c := range s.Rankings {
				rankings = append(rankings, string(c))
			}

			b.WriteString("- Quiz Results Summary:\n")
			fmt.Fprintf(&b, "  * Top Career Match: %s\n", orDefault(string(s.TopCategory), "N/A"))
			fmt.Fprintf(&b, "  * Top Score: %s/%s (%d%% match)\n", quiz.FormatScore(s.TopScore), quiz.FormatScore(s.MaxScore), s.Percentage)
			fmt.Fprintf(&b, "  * Career Rankings: %s\n", orDefault(strings.Join(rankings, " > "), "N/A"))
			fmt.Fprintf(&b, "  * All Scores: %s\n", orDefault(s.DetailedScores, "N/A"))
			b.WriteString("\nUse these results to personalize career advice. Reference specific careers from their top match category.\n")
		}
	}

	b.WriteString("\n")

	switch normalizeLang(cc.Language) {
	case LangChinese:
		b.WriteString("User is Taiwanese/Chinese. Respond in Traditional Chinese (繁體中文) unless they explicitly ask in English.\n\n")
	case LangVietnamese:
		b.WriteString("User is Vietnamese. Respond in Vietnamese unless they explicitly ask in English.\n\n")
	}

	fmt.Fprintf(&b, "User Message: %s\n\n", message)
	b.WriteString("Provide your helpful response with practical career guidance.")

	return b.String()
}

// normalizeLang сводит код языка к одному из поддерживаемых; неизвестный — английский.
func normalizeLang(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "zh-tw", "zh_tw":
		return LangChinese
	case "vi", "vi-vn":
		return LangVietnamese
	default:
		return LangEnglish
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
