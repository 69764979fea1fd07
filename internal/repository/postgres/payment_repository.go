package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// allowedSortColumns is a whitelist of columns valid for ORDER BY.
var allowedSortColumns = map[string]string{
	"created_at": "created_at",
	"amount":     "amount",
	"status":     "status",
	"year":       "year",
	"month":      "month",
}

// nonTerminalStatuses are the states a conditional settle/cancel may leave.
var nonTerminalStatuses = []string{
	string(payment.StatusPending),
	string(payment.StatusOverdue),
}

// PaymentRepository implements payment.Repository using PostgreSQL.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new payment. The partial unique index on
// (student_id, month, year) WHERE status <> 'CANCELLED' makes the
// duplicate-period check and the insert one atomic operation; concurrent
// creations for the same period cannot both succeed.
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	var methodStr *string
	if p.Method != nil {
		s := string(*p.Method)
		methodStr = &s
	}

	amountStr := centsToNumericString(p.AmountCents)

	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payments
		 (id, student_id, amount, month, year, status, method, external_reference, created_at, settled_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.StudentID, amountStr, p.Month, p.Year, string(p.Status),
		methodStr, p.ExternalReference, p.CreatedAt, p.SettledAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicatePeriod
		}
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domainErrors.ErrStudentNotFound
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return r.scanPayment(r.db(ctx).QueryRow(ctx,
		`SELECT id, student_id, amount, month, year, status, method, external_reference, created_at, settled_at
		 FROM payments WHERE id = $1`, id))
}

// List lists payments with optional filters.
func (r *PaymentRepository) List(ctx context.Context, f payment.ListFilter) ([]*payment.Payment, error) {
	query := `SELECT id, student_id, amount, month, year, status, method, external_reference, created_at, settled_at
	 FROM payments WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.StudentID != nil {
		query += fmt.Sprintf(" AND student_id = $%d", argIdx)
		args = append(args, *f.StudentID)
		argIdx++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.Month != nil {
		query += fmt.Sprintf(" AND month = $%d", argIdx)
		args = append(args, *f.Month)
		argIdx++
	}
	if f.Year != nil {
		query += fmt.Sprintf(" AND year = $%d", argIdx)
		args = append(args, *f.Year)
		argIdx++
	}

	// Strict whitelist for sort column
	sortBy := "created_at"
	if col, ok := allowedSortColumns[f.SortBy]; ok {
		sortBy = col
	}
	sortOrder := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*payment.Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// SettleIfNotTerminal settles the payment with a single conditional
// write: the status predicate is evaluated by the database, so a
// concurrent reconciliation that already moved the row makes this a
// harmless no-op instead of a double settle.
func (r *PaymentRepository) SettleIfNotTerminal(ctx context.Context, id uuid.UUID, method payment.Method, externalReference string, settledAt time.Time) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments
		 SET status=$2, method=$3, external_reference=$4, settled_at=$5
		 WHERE id=$1 AND status = ANY($6)`,
		id, string(payment.StatusPaid), string(method), externalReference, settledAt,
		nonTerminalStatuses,
	)
	if err != nil {
		return false, fmt.Errorf("settle payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CancelIfNotTerminal cancels the payment under the same precondition
// as SettleIfNotTerminal.
func (r *PaymentRepository) CancelIfNotTerminal(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payments SET status=$2 WHERE id=$1 AND status = ANY($3)`,
		id, string(payment.StatusCancelled), nonTerminalStatuses,
	)
	if err != nil {
		return false, fmt.Errorf("cancel payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// --- scanning helpers ---

// scanPayment scans a payment from any source implementing the scanner interface.
func (r *PaymentRepository) scanPayment(s scanner) (*payment.Payment, error) {
	p := &payment.Payment{}
	var (
		amountStr string
		status    string
		method    *string
	)
	err := s.Scan(
		&p.ID, &p.StudentID, &amountStr, &p.Month, &p.Year, &status,
		&method, &p.ExternalReference, &p.CreatedAt, &p.SettledAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}

	cents, err := numericStringToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	p.AmountCents = cents

	p.Status = payment.Status(status)
	if method != nil {
		m := payment.Method(*method)
		p.Method = &m
	}
	return p, nil
}
