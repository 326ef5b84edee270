package resumes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jobprep-backend/internal/extract"
	"jobprep-backend/internal/shared/events"
	"jobprep-backend/internal/shared/storage/object"
	"jobprep-backend/internal/shared/telemetry"
)

// DefaultMaxUploadBytes is the upload size limit.
const DefaultMaxUploadBytes int64 = 5 << 20

var allowedMimeTypes = map[string]struct{}{
	extract.MimePDF:  {},
	extract.MimeDOC:  {},
	extract.MimeDOCX: {},
	extract.MimeText: {},
}

// Service contains business logic for resumes.
type Service struct {
	Repo    Repo
	Store   object.ObjectStore
	Parser  *Parser
	Scorer  *Scorer
	Advisor *Advisor
	Events  events.Publisher

	MaxUploadBytes int64
	Now            func() time.Time
	NewID          func() string
}

// NewService wires a Service with default limits, clock and ids.
func NewService(repo Repo, store object.ObjectStore, parser *Parser, scorer *Scorer, advisor *Advisor) *Service {
	return &Service{
		Repo:           repo,
		Store:          store,
		Parser:         parser,
		Scorer:         scorer,
		Advisor:        advisor,
		Events:         events.Noop{},
		MaxUploadBytes: DefaultMaxUploadBytes,
		Now:            func() time.Time { return time.Now().UTC() },
		NewID:          uuid.NewString,
	}
}

// UploadInput is one uploaded resume file.
type UploadInput struct {
	UserID   string
	FileName string
	MimeType string
	Data     []byte
}

// Upload stores the original file, parses it, scores it and persists the
// record. Parsing never fails the upload; the placeholder record is stored
// when nothing could be extracted.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Resume, error) {
	in.FileName = strings.TrimSpace(in.FileName)
	if len(in.Data) == 0 {
		return Resume{}, fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if s.MaxUploadBytes > 0 && int64(len(in.Data)) > s.MaxUploadBytes {
		return Resume{}, fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.MaxUploadBytes)
	}
	mimeType := extract.NormalizeMimeType(in.MimeType, in.FileName, in.Data)
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return Resume{}, fmt.Errorf("%w: only PDF, DOC, DOCX and TXT files are allowed", ErrValidation)
	}

	var storageKey string
	if s.Store != nil {
		obj, err := s.Store.Save(ctx, in.UserID, in.FileName, mimeType, bytes.NewReader(in.Data))
		if err != nil {
			if errors.Is(err, object.ErrInvalidKey) {
				return Resume{}, fmt.Errorf("%w: invalid file name", ErrValidation)
			}
			return Resume{}, fmt.Errorf("store upload: %w", err)
		}
		storageKey = obj.Key
	}

	parsed, err := s.Parser.Parse(ctx, Source{Data: in.Data, MimeType: mimeType, FileName: in.FileName})
	if err != nil {
		s.discard(storageKey)
		return Resume{}, err
	}

	now := s.Now()
	resume := Resume{
		ID:          s.NewID(),
		UserID:      in.UserID,
		FileName:    in.FileName,
		MimeType:    mimeType,
		StorageKey:  storageKey,
		Sections:    parsed.Sections,
		ATSScore:    s.Scorer.Score(ctx, parsed.Sections),
		ParseSource: parsed.Source,
		ChatHistory: []ChatEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, resume); err != nil {
		s.discard(storageKey)
		return Resume{}, err
	}

	s.publish(ctx, "resume.parsed", map[string]any{
		"resumeId":    resume.ID,
		"userId":      resume.UserID,
		"parseSource": resume.ParseSource,
		"atsScore":    resume.ATSScore,
	})
	telemetry.Info("resume.uploaded", map[string]any{
		"resumeId":    resume.ID,
		"parseSource": string(resume.ParseSource),
		"atsScore":    resume.ATSScore,
		"fields":      resume.FieldCount(),
	})
	return resume, nil
}

// List returns the user's resumes, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]Resume, error) {
	return s.Repo.ListByUser(ctx, userID)
}

// Get returns one resume owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Resume, error) {
	return s.Repo.Get(ctx, userID, id)
}

// UpdateSection replaces one section and recomputes the ATS score.
func (s *Service) UpdateSection(ctx context.Context, userID, id, name string, data Section) (Resume, error) {
	return s.Update(ctx, userID, id, map[string]Section{name: data})
}

// Update replaces every section present in changes and recomputes the ATS
// score.
func (s *Service) Update(ctx context.Context, userID, id string, changes map[string]Section) (Resume, error) {
	if len(changes) == 0 {
		return Resume{}, fmt.Errorf("%w: no sections to update", ErrValidation)
	}
	for name := range changes {
		var known Sections
		if !known.Set(name, nil) {
			return Resume{}, fmt.Errorf("%w: invalid section name %q", ErrValidation, name)
		}
	}

	resume, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return Resume{}, err
	}
	normalized := make(map[string]Section, len(changes))
	for name, data := range changes {
		normalized[name] = data.Normalize()
		resume.Set(name, normalized[name])
	}
	resume.ATSScore = s.Scorer.Score(ctx, resume.Sections)
	resume.UpdatedAt = s.Now()

	if err := s.Repo.UpdateSections(ctx, SectionUpdate{
		UserID:    userID,
		ID:        id,
		Sections:  normalized,
		ATSScore:  resume.ATSScore,
		UpdatedAt: resume.UpdatedAt,
	}); err != nil {
		return Resume{}, err
	}
	s.publish(ctx, "resume.updated", map[string]any{
		"resumeId": resume.ID,
		"userId":   resume.UserID,
		"atsScore": resume.ATSScore,
	})
	return resume, nil
}

// Delete removes the resume and, best effort, its stored upload.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	resume, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.discard(resume.StorageKey)
	s.publish(ctx, "resume.deleted", map[string]any{"resumeId": resume.ID, "userId": resume.UserID})
	return nil
}

// Chat answers message with the advisor and appends the exchange to the
// resume's history.
func (s *Service) Chat(ctx context.Context, userID, id, message string) (string, []ChatEntry, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", nil, fmt.Errorf("%w: message is required", ErrValidation)
	}
	resume, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return "", nil, err
	}
	reply := s.Advisor.Reply(ctx, resume, message)
	history, err := s.Repo.AppendChat(ctx, userID, id, ChatEntry{
		Message:   message,
		Reply:     reply,
		Timestamp: s.Now(),
	})
	if err != nil {
		return "", nil, err
	}
	return reply, history, nil
}

// Analyze returns the advisor's review of the resume.
func (s *Service) Analyze(ctx context.Context, userID, id string) (string, Resume, error) {
	resume, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return "", Resume{}, err
	}
	return s.Advisor.Analyze(ctx, resume), resume, nil
}

func (s *Service) discard(storageKey string) {
	if s.Store == nil || storageKey == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, storageKey); err != nil {
		telemetry.Warn("resume.store_delete_failed", map[string]any{"error": err})
	}
}

func (s *Service) publish(ctx context.Context, key string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, key, payload); err != nil {
		telemetry.Warn("events.publish_failed", map[string]any{"routingKey": key, "error": err})
	}
}
