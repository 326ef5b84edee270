package interviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobprep-backend/internal/ai"
	"jobprep-backend/internal/ai/prompts"
	"jobprep-backend/internal/shared/events"
	"jobprep-backend/internal/shared/metrics"
	"jobprep-backend/internal/shared/telemetry"
)

// Service runs timed interview sessions. Every mutation of a session happens
// under the store's per-session lock.
type Service struct {
	Store   Store
	Gateway ai.Gateway
	Catalog *prompts.Catalog
	Events  events.Publisher
	Now     func() time.Time

	// EnforceDeadline rejects answers submitted after the time budget.
	// When false they are accepted and flagged as overtime.
	EnforceDeadline bool
}

func NewService(store Store, gateway ai.Gateway, catalog *prompts.Catalog) *Service {
	return &Service{
		Store:   store,
		Gateway: gateway,
		Catalog: catalog,
		Events:  events.Noop{},
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

type StartInput struct {
	InterviewID string
	UserID      string
	Role        string
	Company     string
	Difficulty  string
}

// Start creates a session with freshly generated questions. Restarting a
// session the caller already owns replaces it.
func (s *Service) Start(ctx context.Context, in StartInput) (Session, error) {
	in.InterviewID = strings.TrimSpace(in.InterviewID)
	if in.InterviewID == "" {
		return Session{}, fmt.Errorf("%w: interview id is required", ErrValidation)
	}
	in.Role = orDefault(in.Role, DefaultRole)
	in.Company = orDefault(in.Company, DefaultCompany)
	in.Difficulty = strings.ToLower(orDefault(in.Difficulty, DefaultDifficulty))
	if _, ok := difficulties[in.Difficulty]; !ok {
		return Session{}, fmt.Errorf("%w: difficulty must be easy, medium or hard", ErrValidation)
	}

	unlock, err := s.Store.Lock(ctx, in.InterviewID)
	if err != nil {
		return Session{}, err
	}
	defer unlock()

	existing, err := s.Store.Get(ctx, in.InterviewID)
	switch {
	case err == nil && existing.UserID != in.UserID:
		return Session{}, ErrNotFound
	case err != nil && !errors.Is(err, ErrNotFound):
		return Session{}, err
	}

	questions := s.questions(ctx, in)
	now := s.Now()
	session := Session{
		ID:         in.InterviewID,
		UserID:     in.UserID,
		Role:       in.Role,
		Company:    in.Company,
		Difficulty: in.Difficulty,
		Questions:  questions,
		Responses:  []Response{},
		Status:     StatusActive,
		StartTime:  now,
		Deadline:   now.Add(TimeBudget),
		ExpiresAt:  now.Add(TimeBudget + Retention),
	}
	if err := s.Store.Put(ctx, session); err != nil {
		return Session{}, err
	}

	metrics.IncInterviewStarted()
	s.publish(ctx, "interview.started", map[string]any{
		"interviewId": session.ID,
		"userId":      session.UserID,
		"role":        session.Role,
		"difficulty":  session.Difficulty,
	})
	telemetry.Info("interview.started", map[string]any{
		"interviewId": session.ID,
		"questions":   len(questions),
		"restarted":   existing.ID != "",
	})
	return session, nil
}

// QuestionView is the caller's position in a session.
type QuestionView struct {
	Question       *Question
	QuestionNumber int
	TotalQuestions int
	TimeRemaining  time.Duration
}

// CurrentQuestion returns the question at the cursor; Question is nil once
// every question has been answered.
func (s *Service) CurrentQuestion(ctx context.Context, id, userID string) (QuestionView, error) {
	session, err := s.owned(ctx, id, userID)
	if err != nil {
		return QuestionView{}, err
	}
	return QuestionView{
		Question:       session.Current(),
		QuestionNumber: session.CurrentQuestionIndex + 1,
		TotalQuestions: len(session.Questions),
		TimeRemaining:  session.TimeRemaining(s.Now()),
	}, nil
}

type SubmitInput struct {
	InterviewID      string
	UserID           string
	Answer           string
	TimeSpentSeconds int
}

type SubmitResult struct {
	Feedback         Feedback
	HasMoreQuestions bool
	NextQuestion     *Question
	QuestionNumber   int
	TotalQuestions   int
	Overtime         bool
}

// SubmitAnswer records an answer to the current question, scores it and
// advances the cursor by exactly one.
func (s *Service) SubmitAnswer(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		return SubmitResult{}, fmt.Errorf("%w: answer is required", ErrValidation)
	}
	if in.TimeSpentSeconds < 0 {
		return SubmitResult{}, fmt.Errorf("%w: timeSpent must not be negative", ErrValidation)
	}

	unlock, err := s.Store.Lock(ctx, in.InterviewID)
	if err != nil {
		return SubmitResult{}, err
	}
	defer unlock()

	session, err := s.owned(ctx, in.InterviewID, in.UserID)
	if err != nil {
		return SubmitResult{}, err
	}
	if session.Status == StatusCompleted {
		return SubmitResult{}, fmt.Errorf("%w: interview has ended", ErrInvalidState)
	}
	if session.Exhausted() {
		return SubmitResult{}, fmt.Errorf("%w: every question has been answered", ErrInvalidState)
	}
	now := s.Now()
	overtime := now.After(session.Deadline)
	if overtime && s.EnforceDeadline {
		return SubmitResult{}, fmt.Errorf("%w: time limit exceeded", ErrInvalidState)
	}

	question := *session.Current()
	feedback := s.feedback(ctx, question, answer)
	session.Responses = append(session.Responses, Response{
		QuestionIndex:    session.CurrentQuestionIndex,
		Question:         question,
		Answer:           answer,
		TimeSpentSeconds: in.TimeSpentSeconds,
		Feedback:         feedback,
		SubmittedAt:      now,
		Overtime:         overtime,
	})
	session.CurrentQuestionIndex++
	if err := s.Store.Put(ctx, session); err != nil {
		return SubmitResult{}, err
	}

	metrics.IncInterviewAnswered()
	s.publish(ctx, "interview.answered", map[string]any{
		"interviewId":   session.ID,
		"userId":        session.UserID,
		"questionIndex": session.CurrentQuestionIndex - 1,
		"score":         feedback.Score,
		"overtime":      overtime,
	})
	return SubmitResult{
		Feedback:         feedback,
		HasMoreQuestions: !session.Exhausted(),
		NextQuestion:     session.Current(),
		QuestionNumber:   session.CurrentQuestionIndex + 1,
		TotalQuestions:   len(session.Questions),
		Overtime:         overtime,
	}, nil
}

// End completes the session and returns its result. Ending a completed
// session returns the stored result unchanged.
func (s *Service) End(ctx context.Context, id, userID string) (Result, error) {
	unlock, err := s.Store.Lock(ctx, id)
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	session, err := s.owned(ctx, id, userID)
	if err != nil {
		return Result{}, err
	}
	if session.Status == StatusCompleted && session.Result != nil {
		return *session.Result, nil
	}

	end := s.Now()
	session.Status = StatusCompleted
	session.EndTime = &end
	session.ExpiresAt = end.Add(Retention)

	result := Result{
		InterviewID:       session.ID,
		Role:              session.Role,
		Company:           session.Company,
		Difficulty:        session.Difficulty,
		DurationMinutes:   int(end.Sub(session.StartTime) / time.Minute),
		QuestionsAnswered: len(session.Responses),
		TotalQuestions:    len(session.Questions),
		Score:             Score(session.Responses),
		Analysis:          s.analysis(ctx, session),
		Responses:         session.Responses,
	}
	session.Result = &result
	if err := s.Store.Put(ctx, session); err != nil {
		return Result{}, err
	}

	metrics.IncInterviewCompleted()
	s.publish(ctx, "interview.completed", map[string]any{
		"interviewId":       session.ID,
		"userId":            session.UserID,
		"score":             result.Score,
		"questionsAnswered": result.QuestionsAnswered,
	})
	telemetry.Info("interview.completed", map[string]any{
		"interviewId": session.ID,
		"score":       result.Score,
		"answered":    result.QuestionsAnswered,
		"durationMin": result.DurationMinutes,
	})
	return result, nil
}

// owned loads a session and hides sessions of other users behind
// ErrNotFound.
func (s *Service) owned(ctx context.Context, id, userID string) (Session, error) {
	session, err := s.Store.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if session.UserID != userID {
		return Session{}, ErrNotFound
	}
	return session, nil
}

func (s *Service) questions(ctx context.Context, in StartInput) []Question {
	qs, err := s.generateQuestions(ctx, in)
	if err != nil {
		metrics.IncAIFallback("interview_questions")
		telemetry.Warn("interview.questions_fallback", map[string]any{"interviewId": in.InterviewID, "error": err})
		return questionsFromCatalog(s.Catalog.Fallbacks.Questions)
	}
	return qs
}

func (s *Service) generateQuestions(ctx context.Context, in StartInput) ([]Question, error) {
	prompt, err := s.Catalog.Render(prompts.InterviewQuestion, map[string]any{
		"Count":      QuestionCount,
		"Role":       in.Role,
		"Company":    in.Company,
		"Difficulty": in.Difficulty,
	})
	if err != nil {
		return nil, err
	}
	raw, err := s.Gateway.GenerateText(ctx, ai.Request{
		Op:                "interview_questions",
		Prompt:            prompt,
		SystemInstruction: s.Catalog.Instructions.Interviewer,
	})
	if err != nil {
		return nil, err
	}
	var decoded []Question
	if err := ai.DecodeArray(raw, "questions", &decoded); err != nil {
		return nil, err
	}

	out := make([]Question, 0, QuestionCount)
	for _, q := range decoded {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" {
			continue
		}
		q.Type = strings.ToLower(strings.TrimSpace(q.Type))
		if _, ok := questionTypes[q.Type]; !ok {
			q.Type = "technical"
		}
		if q.ExpectedPoints == nil {
			q.ExpectedPoints = []string{}
		}
		q.ID = len(out) + 1
		out = append(out, q)
		if len(out) == QuestionCount {
			break
		}
	}
	if len(out) < QuestionCount {
		return nil, fmt.Errorf("%w: got %d usable questions", ai.ErrParse, len(out))
	}
	return out, nil
}

func (s *Service) feedback(ctx context.Context, q Question, answer string) Feedback {
	fb, err := s.generateFeedback(ctx, q, answer)
	if err != nil {
		metrics.IncAIFallback("answer_feedback")
		telemetry.Warn("interview.feedback_fallback", map[string]any{"questionId": q.ID, "error": err})
		return feedbackFromCatalog(s.Catalog.Fallbacks.Feedback)
	}
	return fb
}

func (s *Service) generateFeedback(ctx context.Context, q Question, answer string) (Feedback, error) {
	prompt, err := s.Catalog.Render(prompts.AnswerFeedback, map[string]any{
		"Question":       q.Question,
		"ExpectedPoints": strings.Join(q.ExpectedPoints, ", "),
		"Answer":         answer,
	})
	if err != nil {
		return Feedback{}, err
	}
	raw, err := s.Gateway.GenerateText(ctx, ai.Request{
		Op:                "answer_feedback",
		Prompt:            prompt,
		SystemInstruction: s.Catalog.Instructions.Interviewer,
	})
	if err != nil {
		return Feedback{}, err
	}
	var fb Feedback
	if err := ai.DecodeObject(raw, &fb); err != nil {
		return Feedback{}, err
	}
	if fb.Score == 0 {
		return Feedback{}, fmt.Errorf("%w: feedback without score", ai.ErrParse)
	}
	fb.Score = ai.Clamp(fb.Score, 1, 10)
	fb.Strengths = nonNil(fb.Strengths)
	fb.Improvements = nonNil(fb.Improvements)
	fb.Summary = strings.TrimSpace(fb.Summary)
	return fb, nil
}

type analysisResponse struct {
	Number   int
	Question string
	Answer   string
	Score    int
}

func (s *Service) analysis(ctx context.Context, session Session) Analysis {
	a, err := s.generateAnalysis(ctx, session)
	if err != nil {
		metrics.IncAIFallback("interview_analysis")
		telemetry.Warn("interview.analysis_fallback", map[string]any{"interviewId": session.ID, "error": err})
		return analysisFromCatalog(s.Catalog.Fallbacks.Analysis)
	}
	return a
}

func (s *Service) generateAnalysis(ctx context.Context, session Session) (Analysis, error) {
	responses := make([]analysisResponse, 0, len(session.Responses))
	for i, r := range session.Responses {
		responses = append(responses, analysisResponse{
			Number:   i + 1,
			Question: r.Question.Question,
			Answer:   r.Answer,
			Score:    r.Feedback.Score,
		})
	}
	prompt, err := s.Catalog.Render(prompts.InterviewAnalysis, map[string]any{
		"Role":           session.Role,
		"Company":        session.Company,
		"Difficulty":     session.Difficulty,
		"TotalQuestions": len(session.Questions),
		"Answered":       len(session.Responses),
		"Responses":      responses,
	})
	if err != nil {
		return Analysis{}, err
	}
	raw, err := s.Gateway.GenerateText(ctx, ai.Request{
		Op:                "interview_analysis",
		Prompt:            prompt,
		SystemInstruction: s.Catalog.Instructions.Interviewer,
	})
	if err != nil {
		return Analysis{}, err
	}
	var a Analysis
	if err := ai.DecodeObject(raw, &a); err != nil {
		return Analysis{}, err
	}
	a.Summary = strings.TrimSpace(a.Summary)
	if a.Summary == "" && len(a.Strengths) == 0 && len(a.AreasForImprovement) == 0 {
		return Analysis{}, fmt.Errorf("%w: empty analysis", ai.ErrParse)
	}
	a.OverallScore = ai.Clamp(a.OverallScore, 0, 100)
	a.Strengths = nonNil(a.Strengths)
	a.AreasForImprovement = nonNil(a.AreasForImprovement)
	a.Recommendations = nonNil(a.Recommendations)
	return a, nil
}

func (s *Service) publish(ctx context.Context, key string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, key, payload); err != nil {
		telemetry.Warn("events.publish_failed", map[string]any{"routingKey": key, "error": err})
	}
}

// TimeLimitSeconds is the session budget as reported to clients.
func TimeLimitSeconds() int {
	return int(TimeBudget / time.Second)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
