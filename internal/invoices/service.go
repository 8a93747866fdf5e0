package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sparkleops/sparkle-ops/internal/money"
	"github.com/sparkleops/sparkle-ops/internal/notify"
	"github.com/sparkleops/sparkle-ops/internal/quotes"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Quotes is the part of the quote service invoicing depends on.
type Quotes interface {
	ConvertInTx(ctx context.Context, repo quotes.Repository, id uuid.UUID, actor shared.Actor) (*quotes.Quote, error)
	Converted(ctx context.Context, q *quotes.Quote)
}

// Config holds invoicing settings.
type Config struct {
	PaymentTermsDays int
}

// Deps wires the invoice service.
type Deps struct {
	Repo     Repository
	Quotes   Quotes
	Notifier notify.Dispatcher
	Logger   *slog.Logger
	Config   Config
	Now      func() time.Time
}

// Service issues invoices from approved quotes.
type Service struct {
	repo     Repository
	quotes   Quotes
	notifier notify.Dispatcher
	logger   *slog.Logger
	validate *validator.Validate
	terms    time.Duration
	now      func() time.Time
}

// NewService builds the invoice service.
func NewService(deps Deps) *Service {
	s := &Service{
		repo:     deps.Repo,
		quotes:   deps.Quotes,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		validate: shared.NewValidator(),
		terms:    time.Duration(deps.Config.PaymentTermsDays) * 24 * time.Hour,
		now:      deps.Now,
	}
	if s.notifier == nil {
		s.notifier = notify.NopDispatcher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.terms <= 0 {
		s.terms = 14 * 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func authorize(actor shared.Actor, inv *Invoice) error {
	if actor.Role == shared.RoleClient && inv.ClientID != actor.ID {
		return fmt.Errorf("%w: invoice %s", shared.ErrForbidden, inv.ID)
	}
	return nil
}

// lines turns the priced quote into invoice lines. Service items on the quote
// are covered by the base price line.
func lines(invoiceID uuid.UUID, q *quotes.Quote) []Item {
	one := decimal.NewFromInt(1)
	line := func(desc string, qty, unit decimal.Decimal, taxable bool) Item {
		return Item{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			Description: desc,
			Quantity:    qty,
			UnitPrice:   unit,
			IsTaxable:   taxable,
			TotalPrice:  money.Mul(qty, unit),
		}
	}
	kind := cases.Title(language.English).String(strings.ReplaceAll(string(q.CleaningType), "_", " "))
	items := []Item{line(fmt.Sprintf("%s clean, %d rooms", kind, q.Rooms), one, q.BasePrice, true)}
	if q.TravelCost.IsPositive() {
		items = append(items, line("Travel", one, q.TravelCost, true))
	}
	if q.UrgencySurcharge.IsPositive() {
		items = append(items, line(fmt.Sprintf("Urgency surcharge (level %d)", q.UrgencyLevel), one, q.UrgencySurcharge, true))
	}
	for _, it := range q.Items {
		if it.ItemType == quotes.ItemService {
			continue
		}
		items = append(items, line(it.Description, it.Quantity, it.UnitPrice, it.IsTaxable))
	}
	return items
}

// CreateFromQuote invoices an approved quote and marks the quote converted in
// the same transaction.
func (s *Service) CreateFromQuote(ctx context.Context, req CreateRequest, actor shared.Actor) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	var inv *Invoice
	var converted *quotes.Quote
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := s.quotes.ConvertInTx(ctx, repo.Quotes(), req.QuoteID, actor)
		if err != nil {
			return err
		}
		number, err := repo.NextNumber(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("invoice number: %w", err)
		}
		id := uuid.New()
		inv = &Invoice{
			ID:                    id,
			InvoiceNumber:         number,
			QuoteID:               q.ID,
			ClientID:              q.ClientID,
			Status:                StatusDraft,
			NDISParticipantNumber: q.NDISParticipantNumber,
			DiscountAmount:        q.DiscountAmount,
			DepositAmount:         q.DepositAmount,
			DueDate:               now.Add(s.terms),
			Notes:                 req.Notes,
			CreatedBy:             actor.ID,
			CreatedAt:             now,
			UpdatedAt:             now,
			Items:                 lines(id, q),
		}
		if !q.IsNDISClient {
			inv.NDISParticipantNumber = ""
		}
		inv.Totals()
		if err := repo.Insert(ctx, inv); err != nil {
			return err
		}
		converted = q
		return repo.RecordStatus(ctx, shared.ApprovalLog{
			Module: shared.ModuleInvoice, RefID: inv.ID, ActorID: actor.ID, Action: shared.ApprovalCreate,
			ToStatus: string(StatusDraft), Note: q.QuoteNumber, At: now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.quotes.Converted(ctx, converted)
	s.logger.Info("invoice created",
		slog.String("invoice", inv.InvoiceNumber),
		slog.String("quote", converted.QuoteNumber),
		slog.String("total", inv.Total.StringFixed(2)))
	return inv, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, actor shared.Actor, action shared.ApprovalAction, note string, apply func(*Invoice, time.Time) error) (*Invoice, error) {
	var inv *Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, current); err != nil {
			return err
		}
		from := current.Status
		now := s.now().UTC()
		if err := apply(current, now); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, current); err != nil {
			return err
		}
		inv = current
		return repo.RecordStatus(ctx, shared.ApprovalLog{
			Module: shared.ModuleInvoice, RefID: current.ID, ActorID: actor.ID, Action: action,
			FromStatus: string(from), ToStatus: string(current.Status), Note: note, At: now,
		})
	})
	return inv, err
}

// Send issues a draft invoice and notifies the client. Notification failures
// are logged only.
func (s *Service) Send(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Invoice, error) {
	inv, err := s.transition(ctx, id, actor, shared.ApprovalSend, "", func(inv *Invoice, now time.Time) error {
		return inv.Send(now)
	})
	if err != nil {
		return nil, err
	}
	due := inv.DueDate
	if err := s.notifier.InvoiceSent(ctx, notify.InvoiceEvent{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		QuoteID:       inv.QuoteID,
		ClientID:      inv.ClientID,
		Total:         inv.Total,
		DueDate:       &due,
	}); err != nil {
		s.logger.Warn("invoice sent notification", slog.String("invoice", inv.InvoiceNumber), slog.Any("error", err))
	}
	return inv, nil
}

// Cancel voids the invoice. The source quote stays converted.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor shared.Actor) (*Invoice, error) {
	return s.transition(ctx, id, actor, shared.ApprovalCancel, reason, func(inv *Invoice, now time.Time) error {
		return inv.Cancel(now)
	})
}

// Get returns an invoice the actor may see.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// List returns invoices. Clients only see their own.
func (s *Service) List(ctx context.Context, filter ListFilter, actor shared.Actor) ([]Invoice, int, error) {
	if actor.Role == shared.RoleClient {
		filter.ClientID = &actor.ID
	}
	return s.repo.List(ctx, filter)
}

// History returns the status trail of an invoice.
func (s *Service) History(ctx context.Context, id uuid.UUID, actor shared.Actor) ([]shared.ApprovalLog, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}
