package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sparkleops/sparkle-ops/internal/catalog"
	"github.com/sparkleops/sparkle-ops/internal/money"
	"github.com/sparkleops/sparkle-ops/internal/notify"
	"github.com/sparkleops/sparkle-ops/internal/pricing"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

const expireBatch = 500

// Catalog resolves the priced catalog entries a quote refers to.
type Catalog interface {
	GetService(ctx context.Context, id uuid.UUID) (*catalog.CleaningService, error)
	Addons(ctx context.Context, ids []uuid.UUID) ([]catalog.Addon, error)
}

// CacheInvalidator drops cached quote reads after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Cache serves quote reads from a versioned store.
type Cache interface {
	CacheInvalidator
	BuildKey(ctx context.Context, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
}

// TransitionObserver records status changes for metrics.
type TransitionObserver interface {
	ObserveQuoteTransition(from, to string)
}

// Config holds the tunable business rules.
type Config struct {
	ExpiryDays        int
	RevisionThreshold decimal.Decimal
	DepositPercentage decimal.Decimal
}

// DefaultConfig returns 30 day validity, a 10% revision threshold and a 20%
// deposit.
func DefaultConfig() Config {
	return Config{
		ExpiryDays:        30,
		RevisionThreshold: decimal.NewFromInt(10),
		DepositPercentage: decimal.NewFromInt(20),
	}
}

// Deps wires the service collaborators. Only Repo and Catalog are required.
type Deps struct {
	Repo     Repository
	Catalog  Catalog
	Cache    Cache
	Notifier notify.Dispatcher
	Metrics  TransitionObserver
	Logger   *slog.Logger
	Config   Config
	Now      func() time.Time
}

// Service orchestrates the quote workflow.
type Service struct {
	repo     Repository
	catalog  Catalog
	cache    Cache
	notifier notify.Dispatcher
	metrics  TransitionObserver
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
	validate *validator.Validate
}

// NewService builds the quote service.
func NewService(deps Deps) *Service {
	s := &Service{
		repo:     deps.Repo,
		catalog:  deps.Catalog,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		cfg:      deps.Config,
		now:      deps.Now,
		validate: shared.NewValidator(),
	}
	if s.notifier == nil {
		s.notifier = notify.NopDispatcher{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	defaults := DefaultConfig()
	if s.cfg.ExpiryDays <= 0 {
		s.cfg.ExpiryDays = defaults.ExpiryDays
	}
	if !s.cfg.RevisionThreshold.IsPositive() {
		s.cfg.RevisionThreshold = defaults.RevisionThreshold
	}
	if !s.cfg.DepositPercentage.IsPositive() {
		s.cfg.DepositPercentage = defaults.DepositPercentage
	}
	return s
}

func (s *Service) validity() time.Duration {
	return time.Duration(s.cfg.ExpiryDays) * 24 * time.Hour
}

// authorize limits clients to their own quotes.
func authorize(actor shared.Actor, q *Quote) error {
	if actor.Role == shared.RoleClient && q.ClientID != actor.ID {
		return fmt.Errorf("%w: quote %s", shared.ErrForbidden, q.QuoteNumber)
	}
	return nil
}

// Create validates, prices and numbers a new draft quote.
func (s *Service) Create(ctx context.Context, req CreateQuoteRequest, actor shared.Actor) (*Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	clientID := req.ClientID
	if actor.Role == shared.RoleClient {
		if req.IsRepeatCustomer || !req.PromotionalDiscount.IsZero() {
			return nil, ErrDiscountNotPermitted
		}
		clientID = actor.ID
	}
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("%w: client_id required", shared.ErrValidation)
	}

	now := s.now().UTC()
	q := &Quote{
		ID:                    uuid.New(),
		ClientID:              clientID,
		ServiceID:             req.ServiceID,
		CleaningType:          req.CleaningType,
		PropertyAddress:       req.PropertyAddress,
		Postcode:              req.Postcode,
		Rooms:                 req.Rooms,
		SquareMeters:          req.SquareMeters,
		UrgencyLevel:          req.UrgencyLevel,
		IsNDISClient:          req.IsNDISClient,
		NDISParticipantNumber: req.NDISParticipantNumber,
		PlanManagerName:       req.PlanManagerName,
		PlanManagerEmail:      req.PlanManagerEmail,
		IsRepeatCustomer:      req.IsRepeatCustomer,
		PromotionalDiscount:   req.PromotionalDiscount,
		DepositRequired:       req.DepositRequired,
		Status:                StatusDraft,
		Notes:                 req.Notes,
		CreatedBy:             actor.ID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if req.DepositPercentage.Valid {
		q.DepositPercentage = req.DepositPercentage.Decimal
	}

	items, err := s.requestItems(ctx, q.ID, req.AddonIDs, req.Addons, req.Items, now)
	if err != nil {
		return nil, err
	}
	q.Items = items
	if err := s.price(ctx, q); err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.NextNumber(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("generate quote number: %w", err)
		}
		q.QuoteNumber = number
		if err := repo.Insert(ctx, q); err != nil {
			return err
		}
		return repo.RecordStatus(ctx, shared.ApprovalLog{
			Module: shared.ModuleQuote, RefID: q.ID, ActorID: actor.ID,
			Action: shared.ApprovalCreate, ToStatus: string(StatusDraft), At: now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, "", q)
	return q, nil
}

func (s *Service) requestItems(ctx context.Context, quoteID uuid.UUID, addonIDs []uuid.UUID, addons []AddonInput, inputs []ItemInput, now time.Time) ([]Item, error) {
	items := make([]Item, 0, len(addonIDs)+len(addons)+len(inputs))
	if len(addonIDs) > 0 {
		resolved, err := s.catalog.Addons(ctx, addonIDs)
		if err != nil {
			return nil, err
		}
		for _, a := range resolved {
			items = append(items, newItem(quoteID, ItemAddon, a.Name, decimal.NewFromInt(1), a.Price, true, now))
		}
	}
	for _, a := range addons {
		items = append(items, newItem(quoteID, ItemAddon, a.Name, decimal.NewFromInt(1), a.Price, true, now))
	}
	for _, in := range inputs {
		taxable := in.IsTaxable == nil || *in.IsTaxable
		items = append(items, newItem(quoteID, in.ItemType, in.Description, in.Quantity, in.UnitPrice, taxable, now))
	}
	return items, nil
}

func newItem(quoteID uuid.UUID, itemType ItemType, description string, qty, unit decimal.Decimal, taxable bool, now time.Time) Item {
	return Item{
		ID:          uuid.New(),
		QuoteID:     quoteID,
		ItemType:    itemType,
		Description: description,
		Quantity:    qty,
		UnitPrice:   unit,
		IsTaxable:   taxable,
		TotalPrice:  money.Mul(qty, unit),
		CreatedAt:   now,
	}
}

// PricingAddons turns the chargeable items of a quote into calculator addons.
// Service lines describe the job itself and are priced through the base.
func PricingAddons(items []Item) []pricing.Addon {
	addons := make([]pricing.Addon, 0, len(items))
	for _, it := range items {
		if it.ItemType == ItemService {
			continue
		}
		addons = append(addons, pricing.Addon{Name: it.Description, Price: it.TotalPrice})
	}
	return addons
}

// price recomputes every derived field of q.
func (s *Service) price(ctx context.Context, q *Quote) error {
	svc, err := s.catalog.GetService(ctx, q.ServiceID)
	if err != nil {
		return fmt.Errorf("resolve service: %w", err)
	}
	b, err := pricing.Calculate(pricing.Input{
		Service:             svc.Rate(),
		CleaningType:        q.CleaningType,
		Rooms:               q.Rooms,
		SquareMeters:        q.SquareMeters,
		UrgencyLevel:        q.UrgencyLevel,
		Postcode:            q.Postcode,
		Addons:              PricingAddons(q.Items),
		IsNDISClient:        q.IsNDISClient,
		IsRepeatCustomer:    q.IsRepeatCustomer,
		PromotionalDiscount: q.PromotionalDiscount,
	})
	if err != nil {
		return err
	}
	q.BasePrice = b.BasePrice
	q.ExtrasCost = b.ExtrasCost
	q.TravelCost = b.TravelCost
	q.UrgencySurcharge = b.UrgencySurcharge
	q.Subtotal = b.Subtotal
	q.DiscountAmount = b.DiscountAmount
	q.GSTAmount = b.GSTAmount
	q.FinalPrice = b.TotalPrice
	s.applyDeposit(q)
	return nil
}

func (s *Service) applyDeposit(q *Quote) {
	if !q.DepositRequired {
		q.DepositAmount = decimal.Zero
		q.RemainingBalance = q.FinalPrice
		return
	}
	if !q.DepositPercentage.IsPositive() {
		q.DepositPercentage = s.cfg.DepositPercentage
	}
	q.DepositAmount, q.RemainingBalance = pricing.Deposit(q.FinalPrice, q.DepositPercentage)
}

// reprice recomputes pricing, saves the quote and appends a revision when the
// final price moved by at least the configured threshold.
func (s *Service) reprice(ctx context.Context, repo Repository, q *Quote, actor shared.Actor, now time.Time) (*Revision, error) {
	previous := q.FinalPrice
	if err := s.price(ctx, q); err != nil {
		return nil, err
	}
	q.UpdatedAt = now
	if err := repo.Save(ctx, q); err != nil {
		return nil, err
	}
	if !previous.IsPositive() {
		return nil, nil
	}
	change := money.PercentChange(previous, q.FinalPrice)
	if change.LessThan(s.cfg.RevisionThreshold) {
		return nil, nil
	}
	rev, err := s.appendRevision(ctx, repo, q.ID, previous, q.FinalPrice, "Automatic price update", revisionSummary(previous, q.FinalPrice, change), actor, now)
	if err != nil {
		return nil, err
	}
	return rev, nil
}

func revisionSummary(previous, current, change decimal.Decimal) string {
	direction := "increased"
	if current.LessThan(previous) {
		direction = "decreased"
	}
	return fmt.Sprintf("Price %s from $%s to $%s (%s%%)", direction, money.Format(previous), money.Format(current), change.StringFixed(1))
}

func (s *Service) appendRevision(ctx context.Context, repo Repository, quoteID uuid.UUID, previous, current decimal.Decimal, reason, summary string, actor shared.Actor, now time.Time) (*Revision, error) {
	latest, err := repo.LatestRevision(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	number := 1
	if latest != nil {
		number = latest.RevisionNumber + 1
	}
	rev := Revision{
		ID:             uuid.New(),
		QuoteID:        quoteID,
		RevisionNumber: number,
		PreviousPrice:  previous,
		NewPrice:       current,
		Reason:         reason,
		Summary:        summary,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
	}
	if err := repo.InsertRevision(ctx, rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// edit loads an editable quote under lock, applies fn and reprices.
func (s *Service) edit(ctx context.Context, id uuid.UUID, actor shared.Actor, fn func(context.Context, Repository, *Quote, time.Time) error) (*Quote, error) {
	var out *Quote
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, q); err != nil {
			return err
		}
		if !q.CanEdit() {
			return fmt.Errorf("%w: status %s", ErrNotEditable, q.Status)
		}
		now := s.now().UTC()
		if fn != nil {
			if err := fn(ctx, repo, q, now); err != nil {
				return err
			}
		}
		if _, err := s.reprice(ctx, repo, q, actor, now); err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, out.Status, out)
	return out, nil
}

// Update applies structural changes to an editable quote and reprices it.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateQuoteRequest, actor shared.Actor) (*Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	if req.SquareMeters != nil && req.SquareMeters.Valid && !req.SquareMeters.Decimal.IsPositive() {
		return nil, fmt.Errorf("%w: square_meters must be positive", shared.ErrValidation)
	}
	if actor.Role == shared.RoleClient && (req.IsRepeatCustomer != nil || req.PromotionalDiscount != nil) {
		return nil, ErrDiscountNotPermitted
	}
	return s.edit(ctx, id, actor, func(_ context.Context, _ Repository, q *Quote, _ time.Time) error {
		if req.ServiceID != nil {
			q.ServiceID = *req.ServiceID
		}
		if req.CleaningType != nil {
			q.CleaningType = *req.CleaningType
		}
		if req.PropertyAddress != nil {
			q.PropertyAddress = *req.PropertyAddress
		}
		if req.Postcode != nil {
			q.Postcode = *req.Postcode
		}
		if req.Rooms != nil {
			q.Rooms = *req.Rooms
		}
		if req.SquareMeters != nil {
			q.SquareMeters = *req.SquareMeters
		}
		if req.UrgencyLevel != nil {
			q.UrgencyLevel = *req.UrgencyLevel
		}
		if req.IsNDISClient != nil {
			q.IsNDISClient = *req.IsNDISClient
		}
		if req.NDISParticipantNumber != nil {
			q.NDISParticipantNumber = *req.NDISParticipantNumber
		}
		if req.IsRepeatCustomer != nil {
			q.IsRepeatCustomer = *req.IsRepeatCustomer
		}
		if req.PromotionalDiscount != nil {
			q.PromotionalDiscount = *req.PromotionalDiscount
		}
		if req.DepositRequired != nil {
			q.DepositRequired = *req.DepositRequired
		}
		if req.Notes != nil {
			q.Notes = *req.Notes
		}
		if q.IsNDISClient && q.NDISParticipantNumber == "" {
			return fmt.Errorf("%w: ndis_participant_number required for NDIS quotes", shared.ErrValidation)
		}
		return nil
	})
}

// AddItem appends a line and reprices.
func (s *Service) AddItem(ctx context.Context, id uuid.UUID, in ItemInput, actor shared.Actor) (*Quote, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}
	return s.edit(ctx, id, actor, func(ctx context.Context, repo Repository, q *Quote, now time.Time) error {
		taxable := in.IsTaxable == nil || *in.IsTaxable
		item := newItem(q.ID, in.ItemType, in.Description, in.Quantity, in.UnitPrice, taxable, now)
		if err := repo.InsertItem(ctx, item); err != nil {
			return err
		}
		q.Items = append(q.Items, item)
		return nil
	})
}

// UpdateItem changes a line and reprices.
func (s *Service) UpdateItem(ctx context.Context, id, itemID uuid.UUID, req UpdateItemRequest, actor shared.Actor) (*Quote, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	return s.edit(ctx, id, actor, func(ctx context.Context, repo Repository, q *Quote, _ time.Time) error {
		for i := range q.Items {
			it := &q.Items[i]
			if it.ID != itemID {
				continue
			}
			if req.Description != nil {
				it.Description = *req.Description
			}
			if req.Quantity != nil {
				it.Quantity = *req.Quantity
			}
			if req.UnitPrice != nil {
				it.UnitPrice = *req.UnitPrice
			}
			if req.IsTaxable != nil {
				it.IsTaxable = *req.IsTaxable
			}
			it.TotalPrice = money.Mul(it.Quantity, it.UnitPrice)
			return repo.UpdateItem(ctx, *it)
		}
		return fmt.Errorf("%w: item %s", shared.ErrNotFound, itemID)
	})
}

// RemoveItem deletes a line and reprices.
func (s *Service) RemoveItem(ctx context.Context, id, itemID uuid.UUID, actor shared.Actor) (*Quote, error) {
	return s.edit(ctx, id, actor, func(ctx context.Context, repo Repository, q *Quote, _ time.Time) error {
		for i, it := range q.Items {
			if it.ID == itemID {
				if err := repo.DeleteItem(ctx, q.ID, itemID); err != nil {
					return err
				}
				q.Items = append(q.Items[:i], q.Items[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: item %s", shared.ErrNotFound, itemID)
	})
}

// UpdatePricing recomputes the derived fields of any non-final quote, for
// example after a catalog price change. It returns the revision written when
// the price moved past the threshold.
func (s *Service) UpdatePricing(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Quote, *Revision, error) {
	var out *Quote
	var rev *Revision
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch q.Status {
		case StatusConverted, StatusCancelled, StatusExpired, StatusRejected:
			return fmt.Errorf("%w: status %s", ErrNotEditable, q.Status)
		}
		rev, err = s.reprice(ctx, repo, q, actor, s.now().UTC())
		if err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.afterWrite(ctx, out.Status, out)
	return out, rev, nil
}

// transition loads the quote under lock, applies a state change and records it
// in the status history.
func (s *Service) transition(ctx context.Context, id uuid.UUID, actor shared.Actor, action shared.ApprovalAction, note string, apply func(*Quote, time.Time) error) (*Quote, Status, error) {
	var out *Quote
	var from Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, q); err != nil {
			return err
		}
		from = q.Status
		now := s.now().UTC()
		if err := apply(q, now); err != nil {
			return err
		}
		q.UpdatedAt = now
		if err := repo.Save(ctx, q); err != nil {
			return err
		}
		if err := repo.RecordStatus(ctx, shared.ApprovalLog{
			Module: shared.ModuleQuote, RefID: q.ID, ActorID: actor.ID, Action: action,
			FromStatus: string(from), ToStatus: string(q.Status), Note: note, At: now,
		}); err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, from, err
	}
	s.afterWrite(ctx, from, out)
	return out, from, nil
}

// Submit sends a draft quote to staff.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Quote, error) {
	q, _, err := s.transition(ctx, id, actor, shared.ApprovalSubmit, "", func(q *Quote, now time.Time) error {
		return q.Submit(now)
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, "quote submitted", q, s.notifier.QuoteSubmitted)
	return q, nil
}

// StartReview claims a submitted quote for the acting staff member.
func (s *Service) StartReview(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Quote, error) {
	q, _, err := s.transition(ctx, id, actor, shared.ApprovalReview, "", func(q *Quote, now time.Time) error {
		return q.StartReview(actor.ID, now)
	})
	return q, err
}

// Approve accepts the quote. expiresAt overrides the default validity.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, expiresAt *time.Time, actor shared.Actor) (*Quote, error) {
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", shared.ErrValidation)
	}
	q, _, err := s.transition(ctx, id, actor, shared.ApprovalApprove, "", func(q *Quote, now time.Time) error {
		return q.Approve(actor.ID, expiresAt, s.validity(), now)
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, "quote approved", q, s.notifier.QuoteApproved)
	return q, nil
}

// Reject declines the quote.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string, actor shared.Actor) (*Quote, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	q, _, err := s.transition(ctx, id, actor, shared.ApprovalReject, reason, func(q *Quote, now time.Time) error {
		return q.Reject(actor.ID, reason, now)
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, "quote rejected", q, s.notifier.QuoteRejected)
	return q, nil
}

// Cancel terminates the quote.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Quote, error) {
	q, _, err := s.transition(ctx, id, actor, shared.ApprovalCancel, "", func(q *Quote, now time.Time) error {
		return q.Cancel(now)
	})
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, "quote cancelled", q, s.notifier.QuoteCancelled)
	return q, nil
}

// MarkConverted flags an approved quote as invoiced in its own transaction.
func (s *Service) MarkConverted(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Quote, error) {
	q, _, err := s.transition(ctx, id, actor, shared.ApprovalConvert, "", func(q *Quote, now time.Time) error {
		return q.Convert(now)
	})
	return q, err
}

// ConvertInTx converts the quote on a repository bound to the caller's
// transaction. The caller must invoke Converted after commit.
func (s *Service) ConvertInTx(ctx context.Context, repo Repository, id uuid.UUID, actor shared.Actor) (*Quote, error) {
	q, err := repo.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := q.Convert(now); err != nil {
		return nil, err
	}
	q.UpdatedAt = now
	if err := repo.Save(ctx, q); err != nil {
		return nil, err
	}
	if err := repo.RecordStatus(ctx, shared.ApprovalLog{
		Module: shared.ModuleQuote, RefID: q.ID, ActorID: actor.ID, Action: shared.ApprovalConvert,
		FromStatus: string(StatusApproved), ToStatus: string(StatusConverted), At: now,
	}); err != nil {
		return nil, err
	}
	return q, nil
}

// Converted runs the post-commit hooks of ConvertInTx.
func (s *Service) Converted(ctx context.Context, q *Quote) {
	s.afterWrite(ctx, StatusApproved, q)
}

// ExpireDue moves approved quotes past their expiry to expired. Individual
// failures are logged and skipped.
func (s *Service) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.repo.ListExpirable(ctx, now, expireBatch)
	if err != nil {
		return 0, fmt.Errorf("list expirable quotes: %w", err)
	}
	system := shared.Actor{Role: shared.RoleSystem}
	expired := 0
	for _, id := range ids {
		_, _, err := s.transition(ctx, id, system, shared.ApprovalExpire, "", func(q *Quote, _ time.Time) error {
			return q.Expire(now)
		})
		if err != nil {
			if errors.Is(err, shared.ErrInvalidTransition) {
				continue
			}
			s.logger.Warn("expire quote", slog.String("quote_id", id.String()), slog.Any("error", err))
			continue
		}
		expired++
	}
	return expired, nil
}

// CreateRevision records a manual revision. The previous price is the new
// price of the last revision, or the current price when none exists.
func (s *Service) CreateRevision(ctx context.Context, id uuid.UUID, reason string, actor shared.Actor) (*Revision, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	var rev *Revision
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		previous := q.FinalPrice
		latest, err := repo.LatestRevision(ctx, id)
		if err != nil {
			return err
		}
		if latest != nil {
			previous = latest.NewPrice
		}
		change := money.PercentChange(previous, q.FinalPrice)
		rev, err = s.appendRevision(ctx, repo, id, previous, q.FinalPrice, reason, revisionSummary(previous, q.FinalPrice, change), actor, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return rev, nil
}

// Revisions lists the revision trail of a quote.
func (s *Service) Revisions(ctx context.Context, id uuid.UUID, actor shared.Actor) ([]Revision, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.repo.Revisions(ctx, id)
}

// Get returns a quote, served from cache when available.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Quote, error) {
	q, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Quote, error) {
	if s.cache == nil {
		return s.repo.Get(ctx, id)
	}
	key, err := s.cache.BuildKey(ctx, "quote", id.String())
	if err != nil {
		s.logger.Warn("quote cache key", slog.Any("error", err))
		return s.repo.Get(ctx, id)
	}
	var q Quote
	err = s.cache.FetchJSON(ctx, key, &q, func(ctx context.Context) (any, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		s.logger.Warn("quote cache fetch", slog.Any("error", err))
		return s.repo.Get(ctx, id)
	}
	return &q, nil
}

// List returns quotes matching filter. Clients only see their own.
func (s *Service) List(ctx context.Context, filter ListFilter, actor shared.Actor) ([]Quote, int, error) {
	if actor.Role == shared.RoleClient {
		id := actor.ID
		filter.ClientID = &id
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, *filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Duplicate copies a quote into a new draft with fresh pricing.
func (s *Service) Duplicate(ctx context.Context, id uuid.UUID, actor shared.Actor) (*Quote, error) {
	src, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	q := *src
	q.ID = uuid.New()
	q.QuoteNumber = ""
	q.Status = StatusDraft
	q.RejectionReason = ""
	q.CreatedBy = actor.ID
	q.AssignedTo, q.ReviewedBy = nil, nil
	q.SubmittedAt, q.ReviewedAt, q.ApprovedAt, q.ExpiresAt, q.ConvertedAt, q.CancelledAt = nil, nil, nil, nil, nil, nil
	q.CreatedAt, q.UpdatedAt = now, now
	q.Items = make([]Item, 0, len(src.Items))
	for _, it := range src.Items {
		q.Items = append(q.Items, newItem(q.ID, it.ItemType, it.Description, it.Quantity, it.UnitPrice, it.IsTaxable, now))
	}
	if err := s.price(ctx, &q); err != nil {
		return nil, err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		number, err := repo.NextNumber(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("generate quote number: %w", err)
		}
		q.QuoteNumber = number
		if err := repo.Insert(ctx, &q); err != nil {
			return err
		}
		return repo.RecordStatus(ctx, shared.ApprovalLog{
			Module: shared.ModuleQuote, RefID: q.ID, ActorID: actor.ID, Action: shared.ApprovalCreate,
			ToStatus: string(StatusDraft), Note: "duplicate of " + src.QuoteNumber, At: now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.afterWrite(ctx, "", &q)
	return &q, nil
}

// Calculate prices a prospective quote without persisting anything.
func (s *Service) Calculate(ctx context.Context, req CalculateRequest) (*Estimate, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, err
	}
	svc, err := s.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("resolve service: %w", err)
	}
	items, err := s.requestItems(ctx, uuid.Nil, req.AddonIDs, req.Addons, nil, s.now())
	if err != nil {
		return nil, err
	}
	b, err := pricing.Calculate(pricing.Input{
		Service:             svc.Rate(),
		CleaningType:        req.CleaningType,
		Rooms:               req.Rooms,
		SquareMeters:        req.SquareMeters,
		UrgencyLevel:        req.UrgencyLevel,
		Postcode:            req.Postcode,
		Addons:              PricingAddons(items),
		IsNDISClient:        req.IsNDISClient,
		IsRepeatCustomer:    req.IsRepeatCustomer,
		PromotionalDiscount: req.PromotionalDiscount,
	})
	if err != nil {
		return nil, err
	}
	est := &Estimate{Breakdown: b, RemainingBalance: b.TotalPrice, DepositAmount: decimal.Zero}
	if req.DepositRequired {
		est.DepositAmount, est.RemainingBalance = pricing.Deposit(b.TotalPrice, s.cfg.DepositPercentage)
	}
	return est, nil
}

// History returns the status history of a quote.
func (s *Service) History(ctx context.Context, id uuid.UUID, actor shared.Actor) ([]shared.ApprovalLog, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

func (s *Service) afterWrite(ctx context.Context, from Status, q *Quote) {
	if s.metrics != nil && from != "" && from != q.Status {
		s.metrics.ObserveQuoteTransition(string(from), string(q.Status))
	}
	s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("quote cache bump", slog.Any("error", err))
	}
}

func (s *Service) dispatch(ctx context.Context, what string, q *Quote, send func(context.Context, notify.QuoteEvent) error) {
	if err := send(ctx, Event(q)); err != nil {
		s.logger.Warn("notification failed", slog.String("event", what), slog.String("quote", q.QuoteNumber), slog.Any("error", err))
	}
}

// Event builds the notification payload for q.
func Event(q *Quote) notify.QuoteEvent {
	return notify.QuoteEvent{
		QuoteID:     q.ID,
		QuoteNumber: q.QuoteNumber,
		ClientID:    q.ClientID,
		Status:      string(q.Status),
		FinalPrice:  q.FinalPrice,
		Reason:      q.RejectionReason,
		ExpiresAt:   q.ExpiresAt,
	}
}
