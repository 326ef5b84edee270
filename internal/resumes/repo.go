package resumes

import (
	"context"
	"time"
)

// Repo defines persistence operations for resumes. Every lookup is scoped
// to the owner; a resume owned by someone else is ErrNotFound.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	Get(ctx context.Context, userID, id string) (Resume, error)
	ListByUser(ctx context.Context, userID string) ([]Resume, error)
	UpdateSections(ctx context.Context, u SectionUpdate) error
	AppendChat(ctx context.Context, userID, id string, entry ChatEntry) ([]ChatEntry, error)
	Delete(ctx context.Context, userID, id string) error
}

// SectionUpdate is a partial write. Only the sections named in Sections are
// stored; the others keep whatever a concurrent edit left there.
type SectionUpdate struct {
	UserID    string
	ID        string
	Sections  map[string]Section
	ATSScore  int
	UpdatedAt time.Time
}
