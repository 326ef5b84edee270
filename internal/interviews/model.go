package interviews

import (
	"time"

	"jobprep-backend/internal/ai/prompts"
)

const (
	// QuestionCount is how many questions a session asks.
	QuestionCount = 5
	// TimeBudget is the wall-clock budget of one session.
	TimeBudget = 30 * time.Minute
	// Retention is how long a session is kept after it ends.
	Retention = 24 * time.Hour

	DefaultRole       = "Software Engineer"
	DefaultCompany    = "TechCorp"
	DefaultDifficulty = "medium"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

var difficulties = map[string]struct{}{"easy": {}, "medium": {}, "hard": {}}

var questionTypes = map[string]struct{}{"behavioral": {}, "technical": {}, "situational": {}}

type Question struct {
	ID             int      `json:"id"`
	Question       string   `json:"question"`
	Type           string   `json:"type"`
	ExpectedPoints []string `json:"expectedPoints"`
}

type Feedback struct {
	Score        int      `json:"score"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
	Summary      string   `json:"summary"`
}

type Response struct {
	QuestionIndex    int       `json:"questionIndex"`
	Question         Question  `json:"question"`
	Answer           string    `json:"answer"`
	TimeSpentSeconds int       `json:"timeSpent"`
	Feedback         Feedback  `json:"feedback"`
	SubmittedAt      time.Time `json:"timestamp"`
	Overtime         bool      `json:"overtime,omitempty"`
}

type Analysis struct {
	OverallScore        int      `json:"overallScore"`
	Strengths           []string `json:"strengths"`
	AreasForImprovement []string `json:"areasForImprovement"`
	Recommendations     []string `json:"recommendations"`
	Summary             string   `json:"summary"`
}

// Result is the outcome of an ended session.
type Result struct {
	InterviewID       string     `json:"interviewId"`
	Role              string     `json:"role"`
	Company           string     `json:"company"`
	Difficulty        string     `json:"difficulty"`
	DurationMinutes   int        `json:"duration"`
	QuestionsAnswered int        `json:"questionsAnswered"`
	TotalQuestions    int        `json:"totalQuestions"`
	Score             int        `json:"score"`
	Analysis          Analysis   `json:"analysis"`
	Responses         []Response `json:"responses"`
}

// Session is one timed interview. CurrentQuestionIndex is the index of the
// next unanswered question and never exceeds len(Questions).
type Session struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	Role                 string     `json:"role"`
	Company              string     `json:"company"`
	Difficulty           string     `json:"difficulty"`
	Questions            []Question `json:"questions"`
	CurrentQuestionIndex int        `json:"currentQuestionIndex"`
	Responses            []Response `json:"responses"`
	Status               Status     `json:"status"`
	StartTime            time.Time  `json:"startTime"`
	EndTime              *time.Time `json:"endTime,omitempty"`
	Deadline             time.Time  `json:"deadline"`
	ExpiresAt            time.Time  `json:"expiresAt"`
	Result               *Result    `json:"result,omitempty"`
}

// Current returns the question at the cursor, or nil once every question
// has been answered.
func (s *Session) Current() *Question {
	if s.CurrentQuestionIndex >= len(s.Questions) {
		return nil
	}
	q := s.Questions[s.CurrentQuestionIndex]
	return &q
}

func (s *Session) Exhausted() bool {
	return s.CurrentQuestionIndex >= len(s.Questions)
}

// TimeRemaining is the unused part of the budget, never negative.
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	left := TimeBudget - now.Sub(s.StartTime)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the session is past its retention window.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Score maps the mean per-answer score (1-10) onto 0-100.
func Score(responses []Response) int {
	if len(responses) == 0 {
		return 0
	}
	total := 0
	for _, r := range responses {
		total += r.Feedback.Score
	}
	mean := float64(total) / float64(len(responses))
	return int(mean*10 + 0.5)
}

func (s Session) clone() Session {
	out := s
	out.Questions = append([]Question(nil), s.Questions...)
	out.Responses = append([]Response(nil), s.Responses...)
	if s.EndTime != nil {
		end := *s.EndTime
		out.EndTime = &end
	}
	if s.Result != nil {
		res := *s.Result
		res.Responses = append([]Response(nil), s.Result.Responses...)
		out.Result = &res
	}
	return out
}

func questionsFromCatalog(qs []prompts.Question) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		out = append(out, Question{
			ID:             q.ID,
			Question:       q.Question,
			Type:           q.Type,
			ExpectedPoints: append([]string(nil), q.ExpectedPoints...),
		})
	}
	return out
}

func feedbackFromCatalog(f prompts.Feedback) Feedback {
	return Feedback{
		Score:        f.Score,
		Strengths:    append([]string(nil), f.Strengths...),
		Improvements: append([]string(nil), f.Improvements...),
		Summary:      f.Summary,
	}
}

func analysisFromCatalog(a prompts.Analysis) Analysis {
	return Analysis{
		OverallScore:        a.OverallScore,
		Strengths:           append([]string(nil), a.Strengths...),
		AreasForImprovement: append([]string(nil), a.AreasForImprovement...),
		Recommendations:     append([]string(nil), a.Recommendations...),
		Summary:             a.Summary,
	}
}
