package student

import (
	"context"

	"github.com/google/uuid"
)

// Repository exposes the named queries the ledger and dispatcher need.
// Authorization-relevant joins are explicit methods here instead of
// ad-hoc nested fetches at the call sites.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Student, error)

	// GetWithParent resolves a student together with its linked parent.
	// Returns ErrStudentNotFound or ErrParentNotFound respectively.
	GetWithParent(ctx context.Context, id uuid.UUID) (*Student, *Parent, error)

	// IsParentOf reports whether the user identified by parentUserID is
	// the guardian of the given student.
	IsParentOf(ctx context.Context, parentUserID string, studentID uuid.UUID) (bool, error)
}
