package resumes

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobprep-backend/internal/shared/server/middleware"
	"jobprep-backend/internal/shared/server/respond"
)

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/upload", h.upload)
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
	rg.PUT("/resumes/:id", h.update)
	rg.PUT("/resumes/:id/section", h.updateSection)
	rg.DELETE("/resumes/:id", h.delete)
	rg.POST("/resumes/:id/chat", h.chat)
	rg.POST("/resumes/:id/analyze", h.analyze)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit := h.Svc.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)

	fileHeader, err := formFile(c, "resume", "file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file exceeds %d bytes", limit), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "No file uploaded", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	if int64(len(data)) > limit {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Sprintf("file exceeds %d bytes", limit), nil)
		return
	}

	resume, err := h.Svc.Upload(c.Request.Context(), UploadInput{
		UserID:   userID,
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		writeError(c, err, "failed to upload resume")
		return
	}

	respond.Success(c, http.StatusCreated, gin.H{
		"message": "Resume uploaded and parsed successfully",
		"resume":  resume,
	})
}

func formFile(c *gin.Context, names ...string) (*multipart.FileHeader, error) {
	var lastErr error
	for _, name := range names {
		fh, err := c.FormFile(name)
		if err == nil {
			return fh, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (h *Handler) list(c *gin.Context) {
	resumes, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list resumes")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{"count": len(resumes), "resumes": resumes})
}

func (h *Handler) get(c *gin.Context) {
	resume, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to fetch resume")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{"resume": resume})
}

type updateRequest struct {
	PersonalInfo *Section `json:"personalInfo"`
	Education    *Section `json:"education"`
	Experience   *Section `json:"experience"`
	Projects     *Section `json:"projects"`
	ExtraData    *Section `json:"extraData"`
}

func (r updateRequest) changes() map[string]Section {
	out := make(map[string]Section)
	for name, sec := range map[string]*Section{
		SectionPersonalInfo: r.PersonalInfo,
		SectionEducation:    r.Education,
		SectionExperience:   r.Experience,
		SectionProjects:     r.Projects,
		SectionExtraData:    r.ExtraData,
	} {
		if sec != nil {
			out[name] = *sec
		}
	}
	return out
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	resume, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.changes())
	if err != nil {
		writeError(c, err, "failed to update resume")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{"message": "Resume updated successfully", "resume": resume})
}

type sectionRequest struct {
	SectionName string  `json:"sectionName"`
	SectionData Section `json:"sectionData"`
}

func (h *Handler) updateSection(c *gin.Context) {
	var req sectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sectionData must be a list of {key, value}", nil)
		return
	}
	resume, err := h.Svc.UpdateSection(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.SectionName, req.SectionData)
	if err != nil {
		writeError(c, err, "failed to update section")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{
		"message": fmt.Sprintf("%s updated successfully", req.SectionName),
		"resume":  resume,
	})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		writeError(c, err, "failed to delete resume")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{"message": "Resume deleted successfully"})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	reply, history, err := h.Svc.Chat(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Message)
	if err != nil {
		writeError(c, err, "failed to chat about resume")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{"message": reply, "chatHistory": history})
}

func (h *Handler) analyze(c *gin.Context) {
	analysis, resume, err := h.Svc.Analyze(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		writeError(c, err, "failed to analyze resume")
		return
	}
	respond.Success(c, http.StatusOK, gin.H{"analysis": analysis, "resume": resume})
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrValidation):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Resume not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
