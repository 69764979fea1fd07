package controller

import (
	"net/http"
	"strconv"

	"github.com/andresrivas/colegio-ledger/internal/application/dues"
	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/andresrivas/colegio-ledger/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// PaymentController handles dues ledger HTTP requests.
type PaymentController struct {
	createPayment  *dues.CreatePaymentUseCase
	createCheckout *dues.CreateCheckoutUseCase
	queries        *dues.PaymentQueries
}

// NewPaymentController creates a new PaymentController.
func NewPaymentController(
	createPayment *dues.CreatePaymentUseCase,
	createCheckout *dues.CreateCheckoutUseCase,
	queries *dues.PaymentQueries,
) *PaymentController {
	return &PaymentController{
		createPayment:  createPayment,
		createCheckout: createCheckout,
		queries:        queries,
	}
}

// CreatePayment handles POST /api/v1/payments
func (h *PaymentController) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid student_id", Code: "invalid_id"})
		return
	}

	p, err := h.createPayment.Execute(r.Context(), dues.CreatePaymentRequest{
		StudentID:   studentID,
		AmountCents: req.AmountCents,
		Month:       req.Month,
		Year:        req.Year,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromPayment(p))
}

// CreateCheckoutSession handles POST /api/v1/payments/{id}/checkout-session
func (h *PaymentController) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "missing authentication", Code: "auth_required"})
		return
	}

	redirectURL, err := h.createCheckout.Execute(r.Context(), caller, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutSessionResponse{RedirectURL: redirectURL})
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *PaymentController) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payment id", Code: "invalid_id"})
		return
	}

	p, err := h.queries.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromPayment(p))
}

// ListPayments handles GET /api/v1/payments
func (h *PaymentController) ListPayments(w http.ResponseWriter, r *http.Request) {
	filter := payment.ListFilter{}

	if s := r.URL.Query().Get("student_id"); s != "" {
		id, err := uuid.Parse(s)
		if err == nil {
			filter.StudentID = &id
		}
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := payment.Status(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("month"); s != "" {
		if m, err := strconv.Atoi(s); err == nil {
			filter.Month = &m
		}
	}
	if s := r.URL.Query().Get("year"); s != "" {
		if y, err := strconv.Atoi(s); err == nil {
			filter.Year = &y
		}
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	filter.SortBy = r.URL.Query().Get("sort_by")
	filter.SortOrder = r.URL.Query().Get("sort_order")

	payments, err := h.queries.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, FromPayment(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
