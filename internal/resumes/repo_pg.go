package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const resumeColumns = `id, user_id, file_name, mime_type, storage_key,
       personal_info, education, experience, projects, extra_data,
       ats_score, parse_source, chat_history, created_at, updated_at`

// Create inserts a new resume.
func (r *PGRepo) Create(ctx context.Context, resume Resume) error {
	const query = `
INSERT INTO resumes (
	id, user_id, file_name, mime_type, storage_key,
	personal_info, education, experience, projects, extra_data,
	ats_score, parse_source, chat_history, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	sections, err := marshalSections(resume.Sections)
	if err != nil {
		return err
	}
	history, err := marshalJSONB(nonNilHistory(resume.ChatHistory))
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		resume.ID,
		resume.UserID,
		resume.FileName,
		resume.MimeType,
		resume.StorageKey,
		sections[0],
		sections[1],
		sections[2],
		sections[3],
		sections[4],
		resume.ATSScore,
		string(resume.ParseSource),
		history,
		resume.CreatedAt,
		resume.UpdatedAt,
	)
	return err
}

// Get returns a resume by ID scoped to its owner.
func (r *PGRepo) Get(ctx context.Context, userID, id string) (Resume, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Resume{}, ErrNotFound
	}
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE id = $1 AND user_id = $2
LIMIT 1`
	resume, err := scanResume(r.DB.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return resume, nil
}

// ListByUser returns the user's resumes, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Resume, error) {
	query := `SELECT ` + resumeColumns + `
FROM resumes
WHERE user_id = $1
ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Resume, 0)
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resume)
	}
	return out, rows.Err()
}

var sectionColumns = map[string]string{
	SectionPersonalInfo: "personal_info",
	SectionEducation:    "education",
	SectionExperience:   "experience",
	SectionProjects:     "projects",
	SectionExtraData:    "extra_data",
}

// UpdateSections writes the changed section columns, score and updated_at.
// Columns for untouched sections are not part of the statement.
func (r *PGRepo) UpdateSections(ctx context.Context, u SectionUpdate) error {
	if _, err := uuid.Parse(u.ID); err != nil {
		return ErrNotFound
	}

	args := []any{u.ID, u.UserID}
	set := make([]string, 0, len(u.Sections)+2)
	for _, name := range SectionNames {
		sec, ok := u.Sections[name]
		if !ok {
			continue
		}
		payload, err := marshalJSONB(sec.Clone())
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		args = append(args, payload)
		set = append(set, fmt.Sprintf("%s = $%d", sectionColumns[name], len(args)))
	}
	if len(set) == 0 {
		return errors.New("no sections to update")
	}
	args = append(args, u.ATSScore)
	set = append(set, fmt.Sprintf("ats_score = $%d", len(args)))
	args = append(args, u.UpdatedAt)
	set = append(set, fmt.Sprintf("updated_at = $%d", len(args)))

	query := "UPDATE resumes SET " + strings.Join(set, ", ") + " WHERE id = $1 AND user_id = $2"
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendChat appends one entry in a single statement so concurrent chats
// never overwrite each other, and returns the full history.
func (r *PGRepo) AppendChat(ctx context.Context, userID, id string, entry ChatEntry) ([]ChatEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	const query = `
UPDATE resumes
SET chat_history = chat_history || $3::jsonb, updated_at = $4
WHERE id = $1 AND user_id = $2
RETURNING chat_history`
	payload, err := marshalJSONB([]ChatEntry{entry})
	if err != nil {
		return nil, err
	}
	var raw []byte
	if err := r.DB.QueryRowContext(ctx, query, id, userID, payload, entry.Timestamp).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var history []ChatEntry
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("decode chat_history: %w", err)
	}
	return history, nil
}

// Delete removes a resume.
func (r *PGRepo) Delete(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var resume Resume
	var source string
	var personal, education, experience, projects, extra, history []byte
	if err := row.Scan(
		&resume.ID,
		&resume.UserID,
		&resume.FileName,
		&resume.MimeType,
		&resume.StorageKey,
		&personal,
		&education,
		&experience,
		&projects,
		&extra,
		&resume.ATSScore,
		&source,
		&history,
		&resume.CreatedAt,
		&resume.UpdatedAt,
	); err != nil {
		return Resume{}, err
	}
	resume.ParseSource = ParseSource(source)

	targets := []struct {
		raw []byte
		out *Section
	}{
		{personal, &resume.PersonalInfo},
		{education, &resume.Education},
		{experience, &resume.Experience},
		{projects, &resume.Projects},
		{extra, &resume.ExtraData},
	}
	for _, t := range targets {
		if err := unmarshalJSONB(t.raw, t.out); err != nil {
			return Resume{}, err
		}
		if *t.out == nil {
			*t.out = Section{}
		}
	}
	if err := unmarshalJSONB(history, &resume.ChatHistory); err != nil {
		return Resume{}, err
	}
	resume.ChatHistory = nonNilHistory(resume.ChatHistory)
	return resume, nil
}

func marshalSections(s Sections) ([5][]byte, error) {
	var out [5][]byte
	for i, name := range SectionNames {
		sec, _ := s.Get(name)
		payload, err := marshalJSONB(sec.Clone())
		if err != nil {
			return out, fmt.Errorf("encode %s: %w", name, err)
		}
		out[i] = payload
	}
	return out, nil
}

func marshalJSONB(v any) ([]byte, error) {
	return json.Marshal(v)
}

func unmarshalJSONB(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func nonNilHistory(h []ChatEntry) []ChatEntry {
	if h == nil {
		return []ChatEntry{}
	}
	return h
}

var _ Repo = (*PGRepo)(nil)
