package resumes

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores resumes in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Resume
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Resume)}
}

func (r *MemoryRepo) Create(ctx context.Context, resume Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[resume.ID] = resume.Clone()
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, userID, id string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	resume, ok := r.byID[id]
	if !ok || resume.UserID != userID {
		return Resume{}, ErrNotFound
	}
	return resume.Clone(), nil
}

// ListByUser returns the user's resumes, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Resume, 0)
	for _, resume := range r.byID {
		if resume.UserID == userID {
			out = append(out, resume.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateSections stores the named sections, score and updated_at. Other
// sections and chat history are left alone.
func (r *MemoryRepo) UpdateSections(ctx context.Context, u SectionUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[u.ID]
	if !ok || existing.UserID != u.UserID {
		return ErrNotFound
	}
	for name, sec := range u.Sections {
		existing.Set(name, sec.Clone())
	}
	existing.ATSScore = u.ATSScore
	existing.UpdatedAt = u.UpdatedAt
	r.byID[u.ID] = existing
	return nil
}

func (r *MemoryRepo) AppendChat(ctx context.Context, userID, id string, entry ChatEntry) ([]ChatEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok || existing.UserID != userID {
		return nil, ErrNotFound
	}
	existing.ChatHistory = append(existing.ChatHistory, entry)
	existing.UpdatedAt = entry.Timestamp
	r.byID[id] = existing

	history := make([]ChatEntry, len(existing.ChatHistory))
	copy(history, existing.ChatHistory)
	return history, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[id]
	if !ok || existing.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
