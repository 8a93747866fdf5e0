package invoices

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sparkleops/sparkle-ops/internal/notify"
	"github.com/sparkleops/sparkle-ops/internal/quotes"
	"github.com/sparkleops/sparkle-ops/internal/shared"
)

type mockRepository struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	invoices map[uuid.UUID]*Invoice
	history  []shared.ApprovalLog

	insertError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{invoices: map[uuid.UUID]*Invoice{}}
}

func clone(inv *Invoice) *Invoice {
	c := *inv
	c.Items = append([]Item(nil), inv.Items...)
	return &c
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	snapshot := make(map[uuid.UUID]*Invoice, len(m.invoices))
	for id, inv := range m.invoices {
		snapshot[id] = clone(inv)
	}
	history := append([]shared.ApprovalLog(nil), m.history...)
	m.mu.Unlock()
	if err := fn(ctx, m); err != nil {
		m.mu.Lock()
		m.invoices = snapshot
		m.history = history
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *mockRepository) Quotes() quotes.Repository { return nil }

func (m *mockRepository) Get(_ context.Context, id uuid.UUID) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: invoice %s", shared.ErrNotFound, id)
	}
	return clone(inv), nil
}

func (m *mockRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return m.Get(ctx, id)
}

func (m *mockRepository) List(_ context.Context, filter ListFilter) ([]Invoice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Invoice
	for _, inv := range m.invoices {
		if filter.ClientID != nil && inv.ClientID != *filter.ClientID {
			continue
		}
		if filter.QuoteID != nil && inv.QuoteID != *filter.QuoteID {
			continue
		}
		if filter.Status != nil && inv.Status != *filter.Status {
			continue
		}
		out = append(out, *clone(inv))
	}
	return out, len(out), nil
}

func (m *mockRepository) NextNumber(_ context.Context, year int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := make([]string, 0, len(m.invoices))
	for _, inv := range m.invoices {
		existing = append(existing, inv.InvoiceNumber)
	}
	return shared.NextNumber(shared.InvoiceNumberPrefix, year, existing), nil
}

func (m *mockRepository) Insert(_ context.Context, inv *Invoice) error {
	if m.insertError != nil {
		return m.insertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices[inv.ID] = clone(inv)
	return nil
}

func (m *mockRepository) UpdateStatus(_ context.Context, inv *Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.invoices[inv.ID]; !ok {
		return fmt.Errorf("%w: invoice %s", shared.ErrNotFound, inv.ID)
	}
	m.invoices[inv.ID] = clone(inv)
	return nil
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

func (m *mockRepository) History(_ context.Context, id uuid.UUID) ([]shared.ApprovalLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shared.ApprovalLog
	for _, l := range m.history {
		if l.RefID == id {
			out = append(out, l)
		}
	}
	return out, nil
}

// mockQuotes converts quotes held in memory. Conversions made inside a
// failed transaction are rolled back by the caller via the returned copy.
type mockQuotes struct {
	mu        sync.Mutex
	quotes    map[uuid.UUID]*quotes.Quote
	converted []string
	now       func() time.Time
}

func (m *mockQuotes) ConvertInTx(_ context.Context, _ quotes.Repository, id uuid.UUID, _ shared.Actor) (*quotes.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: quote %s", shared.ErrNotFound, id)
	}
	c := *q
	if err := c.Convert(m.now()); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *mockQuotes) Converted(_ context.Context, q *quotes.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[q.ID] = q
	m.converted = append(m.converted, q.QuoteNumber)
}

type recordingNotifier struct {
	notify.NopDispatcher
	mu   sync.Mutex
	sent []notify.InvoiceEvent
	fail bool
}

func (n *recordingNotifier) InvoiceSent(_ context.Context, evt notify.InvoiceEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, evt)
	if n.fail {
		return fmt.Errorf("smtp unavailable")
	}
	return nil
}
