package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sparkleops/sparkle-ops/internal/platform/db"
	"github.com/sparkleops/sparkle-ops/internal/pricing"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Repository persists quotes, their items and revisions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id uuid.UUID) (*Quote, error)
	// GetForUpdate loads the quote and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Quote, error)
	List(ctx context.Context, filter ListFilter) ([]Quote, int, error)
	// NextNumber reserves the next QT-YYYY-NNNN number. Only valid inside WithTx.
	NextNumber(ctx context.Context, year int) (string, error)
	Insert(ctx context.Context, q *Quote) error
	Save(ctx context.Context, q *Quote) error
	InsertItem(ctx context.Context, item Item) error
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, quoteID, itemID uuid.UUID) error
	Revisions(ctx context.Context, quoteID uuid.UUID) ([]Revision, error)
	LatestRevision(ctx context.Context, quoteID uuid.UUID) (*Revision, error)
	InsertRevision(ctx context.Context, rev Revision) error
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	RecordStatus(ctx context.Context, log shared.ApprovalLog) error
	History(ctx context.Context, quoteID uuid.UUID) ([]shared.ApprovalLog, error)
}

type repository struct {
	db   shared.DBTX
	pool *pgxpool.Pool
}

// NewRepository returns a pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

// NewTxRepository binds a repository to an open transaction owned by the
// caller. WithTx on the result runs fn on the same transaction.
func NewTxRepository(tx pgx.Tx) Repository {
	return &repository{db: tx}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quoteColumns = `id, quote_number, client_id, service_id, cleaning_type, property_address, postcode,
number_of_rooms, square_meters, urgency_level, is_ndis_client, ndis_participant_number,
plan_manager_name, plan_manager_email, is_repeat_customer, promotional_discount,
base_price, extras_cost, travel_cost, urgency_surcharge, subtotal, discount_amount, gst_amount, final_price,
deposit_required, deposit_percentage, deposit_amount, remaining_balance,
status, notes, rejection_reason, created_by, assigned_to, reviewed_by,
submitted_at, reviewed_at, approved_at, expires_at, converted_at, cancelled_at, created_at, updated_at`

func scanQuote(row pgx.Row) (Quote, error) {
	var q Quote
	var cleaningType, status string
	var sqm, promo pgtype.Numeric
	var base, extras, travel, urgency, subtotal, discount, gst, final pgtype.Numeric
	var depositPct, depositAmt, remaining pgtype.Numeric
	err := row.Scan(
		&q.ID, &q.QuoteNumber, &q.ClientID, &q.ServiceID, &cleaningType, &q.PropertyAddress, &q.Postcode,
		&q.Rooms, &sqm, &q.UrgencyLevel, &q.IsNDISClient, &q.NDISParticipantNumber,
		&q.PlanManagerName, &q.PlanManagerEmail, &q.IsRepeatCustomer, &promo,
		&base, &extras, &travel, &urgency, &subtotal, &discount, &gst, &final,
		&q.DepositRequired, &depositPct, &depositAmt, &remaining,
		&status, &q.Notes, &q.RejectionReason, &q.CreatedBy, &q.AssignedTo, &q.ReviewedBy,
		&q.SubmittedAt, &q.ReviewedAt, &q.ApprovedAt, &q.ExpiresAt, &q.ConvertedAt, &q.CancelledAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return q, err
	}
	q.CleaningType = pricing.CleaningType(cleaningType)
	q.Status = Status(status)
	q.SquareMeters = db.NullDecimal(sqm)
	q.PromotionalDiscount = db.Decimal(promo)
	q.BasePrice = db.Decimal(base)
	q.ExtrasCost = db.Decimal(extras)
	q.TravelCost = db.Decimal(travel)
	q.UrgencySurcharge = db.Decimal(urgency)
	q.Subtotal = db.Decimal(subtotal)
	q.DiscountAmount = db.Decimal(discount)
	q.GSTAmount = db.Decimal(gst)
	q.FinalPrice = db.Decimal(final)
	q.DepositPercentage = db.Decimal(depositPct)
	q.DepositAmount = db.Decimal(depositAmt)
	q.RemainingBalance = db.Decimal(remaining)
	return q, nil
}

func (r *repository) get(ctx context.Context, id uuid.UUID, lock bool) (*Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	q, err := scanQuote(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: quote %s", shared.ErrNotFound, id)
		}
		return nil, err
	}
	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Items = items
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Quote, error) {
	return r.get(ctx, id, false)
}

func (r *repository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Quote, error) {
	return r.get(ctx, id, true)
}

func (r *repository) items(ctx context.Context, quoteID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT id, quote_id, item_type, description, quantity, unit_price, is_taxable, total_price, created_at
FROM quote_items WHERE quote_id = $1 ORDER BY created_at, id`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var it Item
		var itemType string
		var qty, unit, total pgtype.Numeric
		if err := rows.Scan(&it.ID, &it.QuoteID, &itemType, &it.Description, &qty, &unit, &it.IsTaxable, &total, &it.CreatedAt); err != nil {
			return nil, err
		}
		it.ItemType = ItemType(itemType)
		it.Quantity = db.Decimal(qty)
		it.UnitPrice = db.Decimal(unit)
		it.TotalPrice = db.Decimal(total)
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Quote, int, error) {
	var conditions []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.ClientID != nil {
		add("client_id = $%d", *filter.ClientID)
	}
	if filter.Status != nil {
		add("status = $%d", string(*filter.Status))
	}
	if filter.Search != "" {
		add("(quote_number ILIKE $%[1]d OR property_address ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if filter.DateFrom != nil {
		add("created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("created_at <= $%d", *filter.DateTo)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotes "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM quotes %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		quoteColumns, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	quotes := []Quote{}
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, 0, err
		}
		quotes = append(quotes, q)
	}
	return quotes, total, rows.Err()
}

// NextNumber serialises issuers with an advisory lock, then locks the
// same-year rows and takes max+1.
func (r *repository) NextNumber(ctx context.Context, year int) (string, error) {
	if err := db.AdvisoryXactLock(ctx, r.db, shared.NumberLockKey(shared.QuoteNumberPrefix, year)); err != nil {
		return "", err
	}
	rows, err := r.db.Query(ctx, `SELECT quote_number FROM quotes WHERE quote_number LIKE $1 FOR UPDATE`,
		shared.NumberPrefix(shared.QuoteNumberPrefix, year)+"%")
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
	return shared.NextNumber(shared.QuoteNumberPrefix, year, existing), nil
}

func (r *repository) Insert(ctx context.Context, q *Quote) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quotes (`+quoteColumns+`) VALUES (
$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21,
$22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37, $38, $39, $40, $41, $42)`,
		q.ID, q.QuoteNumber, q.ClientID, q.ServiceID, string(q.CleaningType), q.PropertyAddress, q.Postcode,
		q.Rooms, db.NullNumeric(q.SquareMeters), q.UrgencyLevel, q.IsNDISClient, q.NDISParticipantNumber,
		q.PlanManagerName, q.PlanManagerEmail, q.IsRepeatCustomer, db.Numeric(q.PromotionalDiscount),
		db.Numeric(q.BasePrice), db.Numeric(q.ExtrasCost), db.Numeric(q.TravelCost), db.Numeric(q.UrgencySurcharge),
		db.Numeric(q.Subtotal), db.Numeric(q.DiscountAmount), db.Numeric(q.GSTAmount), db.Numeric(q.FinalPrice),
		q.DepositRequired, db.Numeric(q.DepositPercentage), db.Numeric(q.DepositAmount), db.Numeric(q.RemainingBalance),
		string(q.Status), q.Notes, q.RejectionReason, q.CreatedBy, q.AssignedTo, q.ReviewedBy,
		q.SubmittedAt, q.ReviewedAt, q.ApprovedAt, q.ExpiresAt, q.ConvertedAt, q.CancelledAt, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateNumber, q.QuoteNumber)
		}
		return fmt.Errorf("insert quote: %w", err)
	}
	for _, item := range q.Items {
		if err := r.InsertItem(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) Save(ctx context.Context, q *Quote) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotes SET
service_id = $2, cleaning_type = $3, property_address = $4, postcode = $5, number_of_rooms = $6,
square_meters = $7, urgency_level = $8, is_ndis_client = $9, ndis_participant_number = $10,
plan_manager_name = $11, plan_manager_email = $12, is_repeat_customer = $13, promotional_discount = $14,
base_price = $15, extras_cost = $16, travel_cost = $17, urgency_surcharge = $18, subtotal = $19,
discount_amount = $20, gst_amount = $21, final_price = $22,
deposit_required = $23, deposit_percentage = $24, deposit_amount = $25, remaining_balance = $26,
status = $27, notes = $28, rejection_reason = $29, assigned_to = $30, reviewed_by = $31,
submitted_at = $32, reviewed_at = $33, approved_at = $34, expires_at = $35, converted_at = $36,
cancelled_at = $37, updated_at = $38
WHERE id = $1`,
		q.ID, q.ServiceID, string(q.CleaningType), q.PropertyAddress, q.Postcode, q.Rooms,
		db.NullNumeric(q.SquareMeters), q.UrgencyLevel, q.IsNDISClient, q.NDISParticipantNumber,
		q.PlanManagerName, q.PlanManagerEmail, q.IsRepeatCustomer, db.Numeric(q.PromotionalDiscount),
		db.Numeric(q.BasePrice), db.Numeric(q.ExtrasCost), db.Numeric(q.TravelCost), db.Numeric(q.UrgencySurcharge), db.Numeric(q.Subtotal),
		db.Numeric(q.DiscountAmount), db.Numeric(q.GSTAmount), db.Numeric(q.FinalPrice),
		q.DepositRequired, db.Numeric(q.DepositPercentage), db.Numeric(q.DepositAmount), db.Numeric(q.RemainingBalance),
		string(q.Status), q.Notes, q.RejectionReason, q.AssignedTo, q.ReviewedBy,
		q.SubmittedAt, q.ReviewedAt, q.ApprovedAt, q.ExpiresAt, q.ConvertedAt,
		q.CancelledAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: quote %s", shared.ErrNotFound, q.ID)
	}
	return nil
}

func (r *repository) InsertItem(ctx context.Context, item Item) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quote_items (id, quote_id, item_type, description, quantity, unit_price, is_taxable, total_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.ID, item.QuoteID, string(item.ItemType), item.Description, db.Numeric(item.Quantity),
		db.Numeric(item.UnitPrice), item.IsTaxable, db.Numeric(item.TotalPrice), item.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quote item: %w", err)
	}
	return nil
}

func (r *repository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := r.db.Exec(ctx, `UPDATE quote_items SET description = $3, quantity = $4, unit_price = $5, is_taxable = $6, total_price = $7
WHERE id = $1 AND quote_id = $2`,
		item.ID, item.QuoteID, item.Description, db.Numeric(item.Quantity), db.Numeric(item.UnitPrice), item.IsTaxable, db.Numeric(item.TotalPrice))
	if err != nil {
		return fmt.Errorf("update quote item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %s", shared.ErrNotFound, item.ID)
	}
	return nil
}

func (r *repository) DeleteItem(ctx context.Context, quoteID, itemID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quote_items WHERE id = $1 AND quote_id = $2`, itemID, quoteID)
	if err != nil {
		return fmt.Errorf("delete quote item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: item %s", shared.ErrNotFound, itemID)
	}
	return nil
}

const revisionColumns = `id, quote_id, revision_number, previous_price, new_price, reason, summary, created_by, created_at`

func scanRevision(row pgx.Row) (Revision, error) {
	var rev Revision
	var prev, next pgtype.Numeric
	if err := row.Scan(&rev.ID, &rev.QuoteID, &rev.RevisionNumber, &prev, &next, &rev.Reason, &rev.Summary, &rev.CreatedBy, &rev.CreatedAt); err != nil {
		return rev, err
	}
	rev.PreviousPrice = db.Decimal(prev)
	rev.NewPrice = db.Decimal(next)
	return rev, nil
}

func (r *repository) Revisions(ctx context.Context, quoteID uuid.UUID) ([]Revision, error) {
	rows, err := r.db.Query(ctx, `SELECT `+revisionColumns+` FROM quote_revisions WHERE quote_id = $1 ORDER BY revision_number`, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	revs := []Revision{}
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		revs = append(revs, rev)
	}
	return revs, rows.Err()
}

func (r *repository) LatestRevision(ctx context.Context, quoteID uuid.UUID) (*Revision, error) {
	rev, err := scanRevision(r.db.QueryRow(ctx, `SELECT `+revisionColumns+` FROM quote_revisions WHERE quote_id = $1
ORDER BY revision_number DESC LIMIT 1`, quoteID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rev, nil
}

func (r *repository) InsertRevision(ctx context.Context, rev Revision) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quote_revisions (`+revisionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rev.ID, rev.QuoteID, rev.RevisionNumber, db.Numeric(rev.PreviousPrice), db.Numeric(rev.NewPrice),
		rev.Reason, rev.Summary, rev.CreatedBy, rev.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("%w: revision %d of quote %s", shared.ErrConflict, rev.RevisionNumber, rev.QuoteID)
		}
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

func (r *repository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM quotes WHERE status = $1 AND expires_at < $2 ORDER BY expires_at LIMIT $3`,
		string(StatusApproved), now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) RecordStatus(ctx context.Context, log shared.ApprovalLog) error {
	return shared.RecordApproval(ctx, r.db, log)
}

func (r *repository) History(ctx context.Context, quoteID uuid.UUID) ([]shared.ApprovalLog, error) {
	return shared.ListApprovals(ctx, r.db, shared.ModuleQuote, quoteID)
}
