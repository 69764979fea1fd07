package postgres

import (
	"context"
	"fmt"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/andresrivas/colegio-ledger/internal/domain/student"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StudentRepository implements student.Repository using PostgreSQL. It is
// a read-only view over the enrollment tables owned by the portal's CRUD
// layer.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

func (r *StudentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// GetByID retrieves a student by its ID.
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	s := &student.Student{}
	err := r.db(ctx).QueryRow(ctx,
		`SELECT id, user_id, full_name, parent_id, created_at
		 FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.FullName, &s.ParentID, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("scan student: %w", err)
	}
	return s, nil
}

// GetWithParent resolves a student and its linked parent in one query.
// A student row without a parent link resolves to ErrParentNotFound.
func (r *StudentRepository) GetWithParent(ctx context.Context, id uuid.UUID) (*student.Student, *student.Parent, error) {
	s := &student.Student{}
	var (
		parentID       *uuid.UUID
		parentUserID   *string
		parentFullName *string
		parentPhone    *string
	)
	err := r.db(ctx).QueryRow(ctx,
		`SELECT s.id, s.user_id, s.full_name, s.parent_id, s.created_at,
		        p.id, p.user_id, p.full_name, p.phone
		 FROM students s
		 LEFT JOIN parents p ON p.id = s.parent_id
		 WHERE s.id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.FullName, &s.ParentID, &s.CreatedAt,
		&parentID, &parentUserID, &parentFullName, &parentPhone)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil, domainErrors.ErrStudentNotFound
		}
		return nil, nil, fmt.Errorf("scan student with parent: %w", err)
	}

	if parentID == nil {
		return s, nil, domainErrors.ErrParentNotFound
	}
	p := &student.Parent{ID: *parentID}
	if parentUserID != nil {
		p.UserID = *parentUserID
	}
	if parentFullName != nil {
		p.FullName = *parentFullName
	}
	if parentPhone != nil {
		p.Phone = *parentPhone
	}
	return s, p, nil
}

// IsParentOf reports whether the user is the guardian of the student.
func (r *StudentRepository) IsParentOf(ctx context.Context, parentUserID string, studentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db(ctx).QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM students s
		   JOIN parents p ON p.id = s.parent_id
		   WHERE s.id = $1 AND p.user_id = $2
		 )`, studentID, parentUserID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check parent link: %w", err)
	}
	return exists, nil
}
