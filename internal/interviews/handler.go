package interviews

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobprep-backend/internal/shared/server/middleware"
	"jobprep-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the interview service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches interview routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/interviews/ai/:id")
	g.POST("/start", h.start)
	g.GET("/question", h.question)
	g.POST("/answer", h.answer)
	g.POST("/end", h.end)
}

type startRequest struct {
	Role       string `json:"role"`
	Company    string `json:"company"`
	Difficulty string `json:"difficulty"`
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	session, err := h.Svc.Start(c.Request.Context(), StartInput{
		InterviewID: c.Param("id"),
		UserID:      middleware.UserIDFromContext(c),
		Role:        req.Role,
		Company:     req.Company,
		Difficulty:  req.Difficulty,
	})
	if err != nil {
		writeError(c, err, "Failed to start interview")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{
		"session": gin.H{
			"id":              session.ID,
			"role":            session.Role,
			"company":         session.Company,
			"difficulty":      session.Difficulty,
			"totalQuestions":  len(session.Questions),
			"currentQuestion": session.Current(),
			"timeLimit":       TimeLimitSeconds(),
		},
	})
}

func (h *Handler) question(c *gin.Context) {
	view, err := h.Svc.CurrentQuestion(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "Failed to get current question")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{
		"question":       view.Question,
		"questionNumber": view.QuestionNumber,
		"totalQuestions": view.TotalQuestions,
		"timeRemaining":  int(view.TimeRemaining.Seconds()),
	})
}

type answerRequest struct {
	Answer    string `json:"answer"`
	TimeSpent int    `json:"timeSpent"`
}

func (h *Handler) answer(c *gin.Context) {
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	res, err := h.Svc.SubmitAnswer(c.Request.Context(), SubmitInput{
		InterviewID:      c.Param("id"),
		UserID:           middleware.UserIDFromContext(c),
		Answer:           req.Answer,
		TimeSpentSeconds: req.TimeSpent,
	})
	if err != nil {
		writeError(c, err, "Failed to submit answer")
		return
	}
	body := gin.H{
		"feedback":         res.Feedback,
		"hasMoreQuestions": res.HasMoreQuestions,
		"nextQuestion":     res.NextQuestion,
		"questionNumber":   res.QuestionNumber,
		"totalQuestions":   res.TotalQuestions,
	}
	if res.Overtime {
		body["overtime"] = true
	}
	respond.Success(c, http.StatusOK, body)
}

func (h *Handler) end(c *gin.Context) {
	result, err := h.Svc.End(c.Request.Context(), c.Param("id"), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "Failed to end interview")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{"result": result})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Interview session not found", nil)
	case errors.Is(err, ErrInvalidState):
		respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
