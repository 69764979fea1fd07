package controller

import (
	"time"

	"github.com/andresrivas/colegio-ledger/internal/domain/message"
	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (cents as integers, string IDs,
// validation tags). Controllers convert them to use case inputs.

// CreatePaymentRequest holds the input for creating a tuition payment.
type CreatePaymentRequest struct {
	StudentID   string `json:"student_id" validate:"required,uuid"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
	Month       int    `json:"month" validate:"required,min=1,max=12"`
	Year        int    `json:"year" validate:"required,min=2000"`
}

// SendMessageRequest holds the input for dispatching a parent notification.
type SendMessageRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid"`
	Channel   string `json:"channel" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

// --- Response DTOs ---

// PaymentResponse represents a payment in API responses.
type PaymentResponse struct {
	ID                string     `json:"id"`
	StudentID         string     `json:"student_id"`
	AmountCents       int64      `json:"amount_cents"`
	Amount            string     `json:"amount"`
	Month             int        `json:"month"`
	Year              int        `json:"year"`
	Status            string     `json:"status"`
	Method            *string    `json:"method,omitempty"`
	ExternalReference *string    `json:"external_reference,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	SettledAt         *time.Time `json:"settled_at,omitempty"`
}

// CheckoutSessionResponse carries the hosted checkout redirect.
type CheckoutSessionResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID        string     `json:"id"`
	StudentID string     `json:"student_id"`
	ParentID  string     `json:"parent_id"`
	Channel   string     `json:"channel"`
	Content   string     `json:"content"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

// FromPayment converts a domain payment to API response.
func FromPayment(p *payment.Payment) *PaymentResponse {
	resp := &PaymentResponse{
		ID:                p.ID.String(),
		StudentID:         p.StudentID.String(),
		AmountCents:       p.AmountCents,
		Amount:            p.Amount(),
		Month:             p.Month,
		Year:              p.Year,
		Status:            string(p.Status),
		ExternalReference: p.ExternalReference,
		CreatedAt:         p.CreatedAt,
		SettledAt:         p.SettledAt,
	}
	if p.Method != nil {
		m := string(*p.Method)
		resp.Method = &m
	}
	return resp
}

// FromMessage converts a domain message to API response.
func FromMessage(m *message.Message) *MessageResponse {
	return &MessageResponse{
		ID:        m.ID.String(),
		StudentID: m.StudentID.String(),
		ParentID:  m.ParentID.String(),
		Channel:   string(m.Channel),
		Content:   m.Content,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
		SentAt:    m.SentAt,
	}
}
