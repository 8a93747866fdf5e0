package quotes

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparkleops/sparkle-ops/internal/catalog"
	"github.com/sparkleops/sparkle-ops/internal/notify"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	// txMu serialises WithTx the way row locks serialise writers.
	txMu sync.Mutex
	mu   sync.Mutex

	quotes    map[uuid.UUID]*Quote
	revisions map[uuid.UUID][]Revision
	history   []shared.ApprovalLog
	getCalls  int

	// Error injection
	saveError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotes:    make(map[uuid.UUID]*Quote),
		revisions: make(map[uuid.UUID][]Revision),
	}
}

func clone(q *Quote) *Quote {
	c := *q
	c.Items = append([]Item(nil), q.Items...)
	return &c
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	// Stage writes so a failing fn leaves the store untouched.
	m.mu.Lock()
	snapshot := make(map[uuid.UUID]*Quote, len(m.quotes))
	for id, q := range m.quotes {
		snapshot[id] = clone(q)
	}
	revs := make(map[uuid.UUID][]Revision, len(m.revisions))
	for id, r := range m.revisions {
		revs[id] = append([]Revision(nil), r...)
	}
	historyLen := len(m.history)
	m.mu.Unlock()

	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.quotes = snapshot
		m.revisions = revs
		m.history = m.history[:historyLen]
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *mockRepository) Get(_ context.Context, id uuid.UUID) (*Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	q, ok := m.quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: quote %s", shared.ErrNotFound, id)
	}
	return clone(q), nil
}

func (m *mockRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Quote, error) {
	return m.Get(ctx, id)
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]Quote, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quote
	for _, q := range m.quotes {
		if filter.ClientID != nil && q.ClientID != *filter.ClientID {
			continue
		}
		if filter.Status != nil && q.Status != *filter.Status {
			continue
		}
		out = append(out, *clone(q))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuoteNumber < out[j].QuoteNumber })
	total := len(out)
	if filter.Offset > 0 {
		out = out[min(filter.Offset, total):]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (m *mockRepository) NextNumber(_ context.Context, year int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := make([]string, 0, len(m.quotes))
	for _, q := range m.quotes {
		existing = append(existing, q.QuoteNumber)
	}
	return shared.NextNumber(shared.QuoteNumberPrefix, year, existing), nil
}

func (m *mockRepository) Insert(_ context.Context, q *Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.quotes {
		if existing.QuoteNumber == q.QuoteNumber {
			return fmt.Errorf("%w: %s", shared.ErrDuplicateNumber, q.QuoteNumber)
		}
	}
	m.quotes[q.ID] = clone(q)
	return nil
}

func (m *mockRepository) Save(_ context.Context, q *Quote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	if _, ok := m.quotes[q.ID]; !ok {
		return shared.ErrNotFound
	}
	m.quotes[q.ID] = clone(q)
	return nil
}

// Item writes are reflected through Save, which stores the full item list.
func (m *mockRepository) InsertItem(context.Context, Item) error { return nil }

func (m *mockRepository) UpdateItem(context.Context, Item) error { return nil }

func (m *mockRepository) DeleteItem(context.Context, uuid.UUID, uuid.UUID) error { return nil }

func (m *mockRepository) Revisions(_ context.Context, quoteID uuid.UUID) ([]Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Revision{}, m.revisions[quoteID]...), nil
}

func (m *mockRepository) LatestRevision(_ context.Context, quoteID uuid.UUID) (*Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	revs := m.revisions[quoteID]
	if len(revs) == 0 {
		return nil, nil
	}
	last := revs[len(revs)-1]
	return &last, nil
}

func (m *mockRepository) InsertRevision(_ context.Context, rev Revision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.revisions[rev.QuoteID] {
		if r.RevisionNumber == rev.RevisionNumber {
			return shared.ErrConflict
		}
	}
	m.revisions[rev.QuoteID] = append(m.revisions[rev.QuoteID], rev)
	return nil
}

func (m *mockRepository) ListExpirable(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for id, q := range m.quotes {
		if q.Status == StatusApproved && q.ExpiresAt != nil && q.ExpiresAt.Before(now) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *mockRepository) RecordStatus(_ context.Context, log shared.ApprovalLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, log)
	return nil
}

func (m *mockRepository) History(_ context.Context, quoteID uuid.UUID) ([]shared.ApprovalLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shared.ApprovalLog
	for _, l := range m.history {
		if l.RefID == quoteID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockRepository) stored(id uuid.UUID) *Quote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.quotes[id])
}

// ============================================================================
// MOCK CATALOG
// ============================================================================

type mockCatalog struct {
	services map[uuid.UUID]*catalog.CleaningService
	addons   map[uuid.UUID]catalog.Addon
}

func (c *mockCatalog) GetService(_ context.Context, id uuid.UUID) (*catalog.CleaningService, error) {
	svc, ok := c.services[id]
	if !ok {
		return nil, fmt.Errorf("%w: service %s", shared.ErrNotFound, id)
	}
	return svc, nil
}

func (c *mockCatalog) Addons(_ context.Context, ids []uuid.UUID) ([]catalog.Addon, error) {
	var out []catalog.Addon
	for _, id := range ids {
		a, ok := c.addons[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown addon %s", shared.ErrValidation, id)
		}
		out = append(out, a)
	}
	return out, nil
}

// ============================================================================
// MOCK NOTIFIER
// ============================================================================

type mockNotifier struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (n *mockNotifier) record(kind string, evt notify.QuoteEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, kind+":"+evt.QuoteNumber)
	if n.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func (n *mockNotifier) QuoteSubmitted(_ context.Context, evt notify.QuoteEvent) error {
	return n.record("submitted", evt)
}

func (n *mockNotifier) QuoteApproved(_ context.Context, evt notify.QuoteEvent) error {
	return n.record("approved", evt)
}

func (n *mockNotifier) QuoteRejected(_ context.Context, evt notify.QuoteEvent) error {
	return n.record("rejected", evt)
}

func (n *mockNotifier) QuoteCancelled(_ context.Context, evt notify.QuoteEvent) error {
	return n.record("cancelled", evt)
}

func (n *mockNotifier) InvoiceSent(context.Context, notify.InvoiceEvent) error { return nil }

func (n *mockNotifier) joined() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return strings.Join(n.events, ",")
}

type transitionCounter struct {
	mu   sync.Mutex
	seen []string
}

func (c *transitionCounter) ObserveQuoteTransition(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, from+">"+to)
}
