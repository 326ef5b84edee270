package resumes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"jobprep-backend/internal/ai/prompts"
	"jobprep-backend/internal/shared/server/middleware"
	"jobprep-backend/internal/shared/storage/object/local"
)

func setupResumeRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	catalog := prompts.Default()
	gw := newFakeGateway(nil)
	svc := NewService(
		NewMemoryRepo(),
		local.New(t.TempDir()),
		NewParser(gw, stubExtractor{}, catalog),
		NewScorer(gw, catalog),
		NewAdvisor(gw, catalog),
	)
	handler := NewHandler(svc)

	router := gin.New()
	router.Use(middleware.Auth("dev"))
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	return router, svc
}

func multipartUpload(t *testing.T, field, fileName string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &body, mw.FormDataContentType()
}

type resumeEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Resume  Resume `json:"resume"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path, guest string, body any) (*httptest.ResponseRecorder, resumeEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Guest-Id", guest)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env resumeEnvelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func uploadResume(t *testing.T, router *gin.Engine, guest string) Resume {
	t.Helper()
	body, contentType := multipartUpload(t, "resume", "cv.txt", []byte("nothing useful"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Guest-Id", guest)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var env resumeEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if !env.Success || env.Resume.ID == "" {
		t.Fatalf("unexpected upload body %s", w.Body.String())
	}
	return env.Resume
}

func TestUploadReturnsPlaceholderResume(t *testing.T) {
	router, _ := setupResumeRouter(t)

	resume := uploadResume(t, router, "g1")
	if resume.ATSScore != 50 || resume.ParseSource != SourcePlaceholder {
		t.Fatalf("unexpected resume %+v", resume)
	}
	if value(resume.PersonalInfo, "name") != SentinelName {
		t.Fatalf("expected sentinel name, got %+v", resume.PersonalInfo)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	router, _ := setupResumeRouter(t)
	body, contentType := multipartUpload(t, "attachment", "cv.txt", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Guest-Id", "g1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestUploadTooLarge(t *testing.T) {
	router, svc := setupResumeRouter(t)
	svc.MaxUploadBytes = 8
	body, contentType := multipartUpload(t, "file", "cv.txt", []byte("this is more than eight bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/resumes/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Guest-Id", "g1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestUpdateSectionEndpoint(t *testing.T) {
	router, _ := setupResumeRouter(t)
	resume := uploadResume(t, router, "g1")

	w, env := doJSON(t, router, http.MethodPut, "/api/v1/resumes/"+resume.ID+"/section", "g1", map[string]any{
		"sectionName": "personalInfo",
		"sectionData": []map[string]string{{"key": "name", "value": "Ann Lee"}, {"key": "email", "value": "ann@example.com"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if env.Resume.ATSScore != 80 || env.Message != "personalInfo updated successfully" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}

	w, env = doJSON(t, router, http.MethodPut, "/api/v1/resumes/"+resume.ID+"/section", "g1", map[string]any{
		"sectionName": "hobbies",
		"sectionData": []map[string]string{},
	})
	if w.Code != http.StatusBadRequest || env.Code != "validation_error" {
		t.Fatalf("expected 400 validation_error, got %d: %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, router, http.MethodPut, "/api/v1/resumes/"+resume.ID+"/section", "g1", map[string]any{
		"sectionName": "education",
		"sectionData": "not a list",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed sectionData, got %d", w.Code)
	}
}

func TestWholeResumeUpdate(t *testing.T) {
	router, _ := setupResumeRouter(t)
	resume := uploadResume(t, router, "g1")

	w, env := doJSON(t, router, http.MethodPut, "/api/v1/resumes/"+resume.ID, "g1", map[string]any{
		"education": []map[string]string{{"key": "university1", "value": "University of Leeds"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if value(env.Resume.Education, "university1") != "University of Leeds" {
		t.Fatalf("education not updated: %+v", env.Resume.Education)
	}
	if value(env.Resume.PersonalInfo, "name") != SentinelName {
		t.Fatalf("untouched sections must be kept: %+v", env.Resume.PersonalInfo)
	}
}

func TestResumeIsolatedBetweenUsers(t *testing.T) {
	router, _ := setupResumeRouter(t)
	resume := uploadResume(t, router, "g1")

	w, env := doJSON(t, router, http.MethodGet, "/api/v1/resumes/"+resume.ID, "g2", nil)
	if w.Code != http.StatusNotFound || env.Message != "Resume not found" {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/resumes/"+resume.ID, "g2", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on foreign delete, got %d", w.Code)
	}
	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/resumes/"+resume.ID, "g1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner should still see resume, got %d", w.Code)
	}
}

func TestChatEndpoint(t *testing.T) {
	router, _ := setupResumeRouter(t)
	resume := uploadResume(t, router, "g1")

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/resumes/"+resume.ID+"/chat", "g1", map[string]string{"message": "Any tips?"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Message     string      `json:"message"`
		ChatHistory []ChatEntry `json:"chatHistory"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	if body.Message != prompts.Default().Fallbacks.ChatReply || len(body.ChatHistory) != 1 {
		t.Fatalf("unexpected chat body %s", w.Body.String())
	}

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/resumes/"+resume.ID+"/chat", "g1", map[string]string{"message": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", w.Code)
	}
}

func TestListRequiresIdentity(t *testing.T) {
	router, _ := setupResumeRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
