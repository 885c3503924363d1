// Package memstore is an in-memory implementation of the capgains store.
//
// It is safe for concurrent use and enforces the same optimistic locking as the sql store,
// which makes it suitable for tests and for short lived servers.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/etnz/capgains"
	"github.com/google/uuid"
)

type summaryKey struct {
	portfolioID string
	year        int
}

// Store keeps every record in maps guarded by a single lock.
type Store struct {
	mu         sync.RWMutex
	portfolios map[string]capgains.Portfolio
	assets     map[string]capgains.Asset
	holdings   map[string]capgains.Holding
	lots       map[string]capgains.TaxLot
	events     []capgains.TaxEvent
	eventIDs   map[string]struct{}
	settings   map[string]capgains.TaxSettings
	summaries  map[summaryKey]capgains.TaxSummary
}

var _ capgains.Database = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		portfolios: make(map[string]capgains.Portfolio),
		assets:     make(map[string]capgains.Asset),
		holdings:   make(map[string]capgains.Holding),
		lots:       make(map[string]capgains.TaxLot),
		eventIDs:   make(map[string]struct{}),
		settings:   make(map[string]capgains.TaxSettings),
		summaries:  make(map[summaryKey]capgains.TaxSummary),
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, capgains.ErrNotFound)
}

/* ---- reference data ---- */

func (s *Store) CreatePortfolio(_ context.Context, p capgains.Portfolio) (capgains.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.portfolios[p.ID] = p
	return p, nil
}

func (s *Store) GetPortfolio(_ context.Context, id string) (capgains.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.portfolios[id]
	if !ok {
		return capgains.Portfolio{}, notFound("portfolio", id)
	}
	return p, nil
}

func (s *Store) CreateAsset(_ context.Context, a capgains.Asset) (capgains.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.assets[a.ID] = a
	return a, nil
}

func (s *Store) GetAsset(_ context.Context, id string) (capgains.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return capgains.Asset{}, notFound("asset", id)
	}
	return a, nil
}

func (s *Store) CreateHolding(_ context.Context, h capgains.Holding) (capgains.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.portfolios[h.PortfolioID]; !ok {
		return capgains.Holding{}, notFound("portfolio", h.PortfolioID)
	}
	if _, ok := s.assets[h.AssetID]; !ok {
		return capgains.Holding{}, notFound("asset", h.AssetID)
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	s.holdings[h.ID] = h
	return h, nil
}

func (s *Store) GetHolding(_ context.Context, id string) (capgains.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holdings[id]
	if !ok {
		return capgains.Holding{}, notFound("holding", id)
	}
	return h, nil
}

// ListHoldings returns the holdings of a portfolio ordered by ID.
func (s *Store) ListHoldings(_ context.Context, portfolioID string) ([]capgains.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []capgains.Holding{}
	for _, h := range s.holdings {
		if h.PortfolioID == portfolioID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

/* ---- lots ---- */

// AddLot records a new lot at version 1.
func (s *Store) AddLot(_ context.Context, l capgains.TaxLot) (capgains.TaxLot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holdings[l.HoldingID]; !ok {
		return capgains.TaxLot{}, notFound("holding", l.HoldingID)
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if _, ok := s.lots[l.ID]; ok {
		return capgains.TaxLot{}, fmt.Errorf("%w: lot %q already exists", capgains.ErrInvalidInput, l.ID)
	}
	l.Version = 1
	s.lots[l.ID] = l
	return l, nil
}

// ListLots returns copies of the lots of a holding in FIFO order.
func (s *Store) ListLots(_ context.Context, holdingID string, statusIn ...capgains.LotStatus) (capgains.Lots, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := capgains.Lots{}
	for _, l := range s.lots {
		if l.HoldingID != holdingID || !statusMatch(l.Status(), statusIn) {
			continue
		}
		out = append(out, l)
	}
	out.SortFIFO()
	return out, nil
}

func statusMatch(st capgains.LotStatus, in []capgains.LotStatus) bool {
	if len(in) == 0 {
		return true
	}
	for _, x := range in {
		if x == st {
			return true
		}
	}
	return false
}

// check verifies an update against the current lot. Caller holds the lock.
func (s *Store) check(u capgains.LotUpdate) error {
	l, ok := s.lots[u.LotID]
	if !ok {
		return notFound("lot", u.LotID)
	}
	if l.Version != u.ExpectedVersion {
		return fmt.Errorf("lot %q at version %d, expected %d: %w", u.LotID, l.Version, u.ExpectedVersion, capgains.ErrConflict)
	}
	if u.RemainingQuantity.IsNegative() || u.RemainingQuantity.GreaterThan(l.OriginalQuantity) {
		return fmt.Errorf("%w: remaining quantity %s out of range for lot %q", capgains.ErrInvalidInput, u.RemainingQuantity, u.LotID)
	}
	return nil
}

func (s *Store) apply(u capgains.LotUpdate) {
	l := s.lots[u.LotID]
	l.RemainingQuantity = u.RemainingQuantity
	l.Version++
	s.lots[u.LotID] = l
}

func (s *Store) UpdateLot(_ context.Context, u capgains.LotUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(u); err != nil {
		return err
	}
	s.apply(u)
	return nil
}

// CommitSale checks every update and event first, then applies them all.
func (s *Store) CommitSale(_ context.Context, updates []capgains.LotUpdate, events []capgains.TaxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(events))
	for _, u := range updates {
		if err := s.check(u); err != nil {
			return err
		}
	}
	for _, e := range events {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, ok := s.eventIDs[e.ID]; ok {
			return fmt.Errorf("%w: event %q already exists", capgains.ErrInvalidInput, e.ID)
		}
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: duplicate event %q", capgains.ErrInvalidInput, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	for _, u := range updates {
		s.apply(u)
	}
	for _, e := range events {
		s.events = append(s.events, e)
		s.eventIDs[e.ID] = struct{}{}
	}
	return nil
}

/* ---- events ---- */

func (s *Store) AddEvent(_ context.Context, e capgains.TaxEvent) (capgains.TaxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if _, ok := s.eventIDs[e.ID]; ok {
		return capgains.TaxEvent{}, fmt.Errorf("%w: event %q already exists", capgains.ErrInvalidInput, e.ID)
	}
	s.events = append(s.events, e)
	s.eventIDs[e.ID] = struct{}{}
	return e, nil
}

// ListEvents returns the events of a portfolio for a year in recording order.
func (s *Store) ListEvents(_ context.Context, portfolioID string, taxYear int) ([]capgains.TaxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []capgains.TaxEvent{}
	for _, e := range s.events {
		if e.PortfolioID == portfolioID && e.TaxYear() == taxYear {
			out = append(out, e)
		}
	}
	return out, nil
}

/* ---- settings and summaries ---- */

func (s *Store) GetSettings(_ context.Context, userEmail string) (capgains.TaxSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.settings[userEmail]
	if !ok {
		return capgains.TaxSettings{}, notFound("settings", userEmail)
	}
	return v, nil
}

func (s *Store) PutSettings(_ context.Context, v capgains.TaxSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[v.UserEmail] = v
	return nil
}

func (s *Store) GetSummary(_ context.Context, portfolioID string, taxYear int) (capgains.TaxSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.summaries[summaryKey{portfolioID, taxYear}]
	if !ok {
		return capgains.TaxSummary{}, notFound("summary", fmt.Sprintf("%s/%d", portfolioID, taxYear))
	}
	return v, nil
}

func (s *Store) SummaryYears(_ context.Context, portfolioID string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	years := []int{}
	for k := range s.summaries {
		if k.portfolioID == portfolioID {
			years = append(years, k.year)
		}
	}
	sort.Ints(years)
	return years, nil
}

func (s *Store) UpsertSummary(_ context.Context, v capgains.TaxSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summaryKey{v.PortfolioID, v.TaxYear}] = v
	return nil
}

// Close does nothing.
func (s *Store) Close() error { return nil }
