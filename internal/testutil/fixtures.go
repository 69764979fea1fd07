package testutil

import (
	"time"

	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/andresrivas/colegio-ledger/internal/domain/student"
	"github.com/google/uuid"
)

func NewTestParent(userID, phone string) *student.Parent {
	return &student.Parent{
		ID:        uuid.New(),
		UserID:    userID,
		FullName:  "Test Parent",
		Phone:     phone,
		CreatedAt: time.Now(),
	}
}

func NewTestStudent(userID string, parentID *uuid.UUID) *student.Student {
	return &student.Student{
		ID:        uuid.New(),
		UserID:    userID,
		FullName:  "Test Student",
		ParentID:  parentID,
		CreatedAt: time.Now(),
	}
}

func NewTestPayment(studentID uuid.UUID, amountCents int64, month, year int) *payment.Payment {
	return &payment.Payment{
		ID:          uuid.New(),
		StudentID:   studentID,
		AmountCents: amountCents,
		Month:       month,
		Year:        year,
		Status:      payment.StatusPending,
		CreatedAt:   time.Now(),
	}
}

func NewPaidPayment(studentID uuid.UUID, amountCents int64, month, year int) *payment.Payment {
	p := NewTestPayment(studentID, amountCents, month, year)
	method := payment.MethodStripe
	ref := "cs_test_" + uuid.New().String()[:8]
	settledAt := time.Now()
	p.Status = payment.StatusPaid
	p.Method = &method
	p.ExternalReference = &ref
	p.SettledAt = &settledAt
	return p
}

func UUIDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
