package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkleops/sparkle-ops/internal/platform/db"
	"github.com/sparkleops/sparkle-ops/internal/quotes"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Repository persists invoices.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	// Quotes returns a quote repository bound to the same transaction.
	Quotes() quotes.Repository
	Get(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
	// NextNumber reserves the next INV-YYYY-NNNN number. Only valid inside WithTx.
	NextNumber(ctx context.Context, year int) (string, error)
	Insert(ctx context.Context, inv *Invoice) error
	UpdateStatus(ctx context.Context, inv *Invoice) error
	RecordStatus(ctx context.Context, log shared.ApprovalLog) error
	History(ctx context.Context, invoiceID uuid.UUID) ([]shared.ApprovalLog, error)
}

type repository struct {
	db   shared.DBTX
	tx   pgx.Tx
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, tx: tx, pool: r.pool})
	})
}

func (r *repository) Quotes() quotes.Repository {
	if r.tx == nil {
		return quotes.NewRepository(r.pool)
	}
	return quotes.NewTxRepository(r.tx)
}

const invoiceColumns = `id, invoice_number, quote_id, client_id, status, ndis_participant_number,
subtotal, discount_amount, taxable_amount, gst_amount, total, deposit_amount, balance_due,
due_date, notes, created_by, sent_at, cancelled_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var status string
	var subtotal, discount, taxable, gst, total, deposit, balance pgtype.Numeric
	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.QuoteID, &inv.ClientID, &status, &inv.NDISParticipantNumber,
		&subtotal, &discount, &taxable, &gst, &total, &deposit, &balance,
		&inv.DueDate, &inv.Notes, &inv.CreatedBy, &inv.SentAt, &inv.CancelledAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return inv, err
	}
	inv.Status = Status(status)
	inv.Subtotal = db.Decimal(subtotal)
	inv.DiscountAmount = db.Decimal(discount)
	inv.TaxableAmount = db.Decimal(taxable)
	inv.GSTAmount = db.Decimal(gst)
	inv.Total = db.Decimal(total)
	inv.DepositAmount = db.Decimal(deposit)
	inv.BalanceDue = db.Decimal(balance)
	return inv, nil
}

func (r *repository) get(ctx context.Context, id uuid.UUID, lock bool) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %s", shared.ErrNotFound, id)
		}
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, invoice_id, description, quantity, unit_price, is_taxable, total_price
FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	inv.Items = []Item{}
	for rows.Next() {
		var it Item
		var qty, unit, total pgtype.Numeric
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &qty, &unit, &it.IsTaxable, &total); err != nil {
			return nil, err
		}
		it.Quantity = db.Decimal(qty)
		it.UnitPrice = db.Decimal(unit)
		it.TotalPrice = db.Decimal(total)
		inv.Items = append(inv.Items, it)
	}
	return &inv, rows.Err()
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return r.get(ctx, id, false)
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return r.get(ctx, id, true)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var conditions []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.ClientID != nil {
		add("client_id = $%d", *filter.ClientID)
	}
	if filter.QuoteID != nil {
		add("quote_id = $%d", *filter.QuoteID)
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM invoices "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM invoices %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, rows.Err()
}

func (r *repository) NextNumber(ctx context.Context, year int) (string, error) {
	if err := db.AdvisoryXactLock(ctx, r.db, shared.NumberLockKey(shared.InvoiceNumberPrefix, year)); err != nil {
		return "", err
	}
	rows, err := r.db.Query(ctx, `SELECT invoice_number FROM invoices WHERE invoice_number LIKE $1`,
		shared.NumberPrefix(shared.InvoiceNumberPrefix, year)+"%")
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var existing []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return "", err
		}
		existing = append(existing, n)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return shared.NextNumber(shared.InvoiceNumberPrefix, year, existing), nil
}

func (r *repository) Insert(ctx context.Context, inv *Invoice) error {
	_, err := r.db.Exec(ctx, `INSERT INTO invoices (`+invoiceColumns+`) VALUES (
$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		inv.ID, inv.InvoiceNumber, inv.QuoteID, inv.ClientID, string(inv.Status), inv.NDISParticipantNumber,
		db.Numeric(inv.Subtotal), db.Numeric(inv.DiscountAmount), db.Numeric(inv.TaxableAmount), db.Numeric(inv.GSTAmount),
		db.Numeric(inv.Total), db.Numeric(inv.DepositAmount), db.Numeric(inv.BalanceDue),
		inv.DueDate, inv.Notes, inv.CreatedBy, inv.SentAt, inv.CancelledAt, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateNumber, inv.InvoiceNumber)
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	for i, it := range inv.Items {
		_, err := r.db.Exec(ctx, `INSERT INTO invoice_items (id, invoice_id, position, description, quantity, unit_price, is_taxable, total_price)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.ID, it.InvoiceID, i+1, it.Description, db.Numeric(it.Quantity), db.Numeric(it.UnitPrice), it.IsTaxable, db.Numeric(it.TotalPrice))
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, inv *Invoice) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices SET status = $2, sent_at = $3, cancelled_at = $4, updated_at = $5 WHERE id = $1`,
		inv.ID, string(inv.Status), inv.SentAt, inv.CancelledAt, inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %s", shared.ErrNotFound, inv.ID)
	}
	return nil
}

func (r *repository) RecordStatus(ctx context.Context, log shared.ApprovalLog) error {
	return shared.RecordApproval(ctx, r.db, log)
}

func (r *repository) History(ctx context.Context, invoiceID uuid.UUID) ([]shared.ApprovalLog, error) {
	return shared.ListApprovals(ctx, r.db, shared.ModuleInvoice, invoiceID)
}
