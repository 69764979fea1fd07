package testutil

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/andresrivas/colegio-ledger/internal/domain/message"
	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/andresrivas/colegio-ledger/internal/domain/student"
	"github.com/google/uuid"
)

// --- Payment Repository Mock ---

// MockPaymentRepository is a mock implementation of payment.Repository.
// Its default behavior mirrors the real store's concurrency guarantees:
// the duplicate-period insert and the conditional settle/cancel hold under
// the mutex, so concurrent tests observe the same semantics as Postgres.
type MockPaymentRepository struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*payment.Payment

	CreateFunc              func(ctx context.Context, p *payment.Payment) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*payment.Payment, error)
	ListFunc                func(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error)
	SettleIfNotTerminalFunc func(ctx context.Context, id uuid.UUID, method payment.Method, externalReference string, settledAt time.Time) (bool, error)
	CancelIfNotTerminalFunc func(ctx context.Context, id uuid.UUID) (bool, error)
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[uuid.UUID]*payment.Payment),
	}
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payments {
		if existing.StudentID == p.StudentID &&
			existing.Month == p.Month && existing.Year == p.Year &&
			existing.Status != payment.StatusCancelled {
			return domainErrors.ErrDuplicatePeriod
		}
	}
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return nil, domainErrors.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MockPaymentRepository) List(ctx context.Context, filter payment.ListFilter) ([]*payment.Payment, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*payment.Payment, 0, len(m.payments))
	for _, p := range m.payments {
		if filter.StudentID != nil && p.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	return result, nil
}

func (m *MockPaymentRepository) SettleIfNotTerminal(ctx context.Context, id uuid.UUID, method payment.Method, externalReference string, settledAt time.Time) (bool, error) {
	if m.SettleIfNotTerminalFunc != nil {
		return m.SettleIfNotTerminalFunc(ctx, id, method, externalReference, settledAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.IsTerminal() {
		return false, nil
	}
	p.Status = payment.StatusPaid
	p.Method = &method
	p.ExternalReference = &externalReference
	p.SettledAt = &settledAt
	return true, nil
}

func (m *MockPaymentRepository) CancelIfNotTerminal(ctx context.Context, id uuid.UUID) (bool, error) {
	if m.CancelIfNotTerminalFunc != nil {
		return m.CancelIfNotTerminalFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok || p.IsTerminal() {
		return false, nil
	}
	p.Status = payment.StatusCancelled
	return true, nil
}

// Seed inserts a payment bypassing the duplicate check.
func (m *MockPaymentRepository) Seed(p *payment.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.payments[p.ID] = &cp
}

// --- Student Repository Mock ---

// MockStudentRepository is a mock implementation of student.Repository.
type MockStudentRepository struct {
	mu       sync.Mutex
	students map[uuid.UUID]*student.Student
	parents  map[uuid.UUID]*student.Parent

	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*student.Student, error)
	GetWithParentFunc func(ctx context.Context, id uuid.UUID) (*student.Student, *student.Parent, error)
	IsParentOfFunc    func(ctx context.Context, parentUserID string, studentID uuid.UUID) (bool, error)
}

func NewMockStudentRepository() *MockStudentRepository {
	return &MockStudentRepository{
		students: make(map[uuid.UUID]*student.Student),
		parents:  make(map[uuid.UUID]*student.Parent),
	}
}

// SeedStudent registers a student, optionally linked to a parent.
func (m *MockStudentRepository) SeedStudent(s *student.Student) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
}

// SeedParent registers a parent.
func (m *MockStudentRepository) SeedParent(p *student.Parent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parents[p.ID] = p
}

func (m *MockStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, domainErrors.ErrStudentNotFound
	}
	return s, nil
}

func (m *MockStudentRepository) GetWithParent(ctx context.Context, id uuid.UUID) (*student.Student, *student.Parent, error) {
	if m.GetWithParentFunc != nil {
		return m.GetWithParentFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return nil, nil, domainErrors.ErrStudentNotFound
	}
	if s.ParentID == nil {
		return s, nil, domainErrors.ErrParentNotFound
	}
	p, ok := m.parents[*s.ParentID]
	if !ok {
		return s, nil, domainErrors.ErrParentNotFound
	}
	return s, p, nil
}

func (m *MockStudentRepository) IsParentOf(ctx context.Context, parentUserID string, studentID uuid.UUID) (bool, error) {
	if m.IsParentOfFunc != nil {
		return m.IsParentOfFunc(ctx, parentUserID, studentID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[studentID]
	if !ok || s.ParentID == nil {
		return false, nil
	}
	p, ok := m.parents[*s.ParentID]
	if !ok {
		return false, nil
	}
	return p.UserID == parentUserID, nil
}

// --- Message Repository Mock ---

// MockMessageRepository is a mock implementation of message.Repository.
type MockMessageRepository struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*message.Message

	CreateFunc            func(ctx context.Context, msg *message.Message) error
	MarkSentIfPendingFunc func(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error)
}

func NewMockMessageRepository() *MockMessageRepository {
	return &MockMessageRepository{
		messages: make(map[uuid.UUID]*message.Message),
	}
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *message.Message) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages[msg.ID] = &cp
	return nil
}

func (m *MockMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, domainErrors.ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *MockMessageRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*message.Message
	for _, msg := range m.messages {
		if msg.StudentID == studentID {
			cp := *msg
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockMessageRepository) MarkSentIfPending(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error) {
	if m.MarkSentIfPendingFunc != nil {
		return m.MarkSentIfPendingFunc(ctx, id, sentAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.Status != message.StatusPending {
		return false, nil
	}
	msg.Status = message.StatusSent
	msg.SentAt = &sentAt
	return true, nil
}

func (m *MockMessageRepository) MarkFailedIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok || msg.Status != message.StatusPending {
		return false, nil
	}
	msg.Status = message.StatusFailed
	return true, nil
}

// Count returns the number of stored messages.
func (m *MockMessageRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// --- Event Recorder Mock ---

// MockEventRecorder replicates the first-claim-wins semantics of the
// provider event table.
type MockEventRecorder struct {
	mu   sync.Mutex
	seen map[string]bool

	RecordFunc func(ctx context.Context, eventID string) (bool, error)
}

func NewMockEventRecorder() *MockEventRecorder {
	return &MockEventRecorder{seen: make(map[string]bool)}
}

func (m *MockEventRecorder) Record(ctx context.Context, eventID string) (bool, error) {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

// Forget drops a recorded event id, simulating a rolled-back claim.
func (m *MockEventRecorder) Forget(eventID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, eventID)
}

// --- Transaction Manager Mock ---

// MockTransactionManager runs fn directly. When fn fails it also unwinds
// the event claim recorded inside, mimicking a rollback, if a recorder
// and claim tracker are attached.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}
