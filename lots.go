package capgains

import (
	"fmt"
	"sort"

	"github.com/etnz/capgains/date"
)

// LotStatus is derived from the remaining quantity of a lot.
type LotStatus int

const (
	LotOpen LotStatus = iota
	LotPartiallySold
	LotClosed
)

func (s LotStatus) String() string {
	switch s {
	case LotOpen:
		return "open"
	case LotPartiallySold:
		return "partially_sold"
	case LotClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ParseLotStatus parses a string into a LotStatus.
func ParseLotStatus(s string) (LotStatus, error) {
	switch s {
	case "open":
		return LotOpen, nil
	case "partially_sold":
		return LotPartiallySold, nil
	case "closed":
		return LotClosed, nil
	default:
		return 0, fmt.Errorf("unknown lot status: %q", s)
	}
}

func (s LotStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *LotStatus) UnmarshalText(b []byte) error {
	v, err := ParseLotStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Matchable are the statuses a sale can consume from.
var Matchable = []LotStatus{LotOpen, LotPartiallySold}

// TaxLot represents a single purchase of an asset, used for cost basis calculations.
//
// Lots are never deleted: a fully sold lot is closed and kept for history.
// Version is incremented by the store on every update and is used for optimistic locking.
type TaxLot struct {
	ID                string    `json:"id"`
	HoldingID         string    `json:"holdingId"`
	PurchaseDate      date.Date `json:"purchaseDate"`
	OriginalQuantity  Quantity  `json:"originalQuantity"`
	RemainingQuantity Quantity  `json:"remainingQuantity"`
	CostBasisPerUnit  Money     `json:"costBasisPerUnit"`
	Version           int64     `json:"version"`
}

// StatusOf derives the status of a lot from its quantities.
func StatusOf(original, remaining Quantity) LotStatus {
	switch {
	case !remaining.IsPositive():
		return LotClosed
	case remaining.Equal(original):
		return LotOpen
	default:
		return LotPartiallySold
	}
}

// Status returns the lot status.
func (l TaxLot) Status() LotStatus { return StatusOf(l.OriginalQuantity, l.RemainingQuantity) }

// Validate checks the lot invariants.
func (l TaxLot) Validate() error {
	if l.HoldingID == "" {
		return fmt.Errorf("%w: lot has no holding", ErrInvalidInput)
	}
	if l.PurchaseDate.IsZero() {
		return fmt.Errorf("%w: lot has no purchase date", ErrInvalidInput)
	}
	if !l.OriginalQuantity.IsPositive() {
		return fmt.Errorf("%w: lot quantity must be positive, got %s", ErrInvalidInput, l.OriginalQuantity)
	}
	if l.RemainingQuantity.IsNegative() || l.RemainingQuantity.GreaterThan(l.OriginalQuantity) {
		return fmt.Errorf("%w: remaining quantity %s out of [0, %s]", ErrInvalidInput, l.RemainingQuantity, l.OriginalQuantity)
	}
	if l.CostBasisPerUnit.IsNegative() {
		return fmt.Errorf("%w: negative cost basis %s", ErrInvalidInput, l.CostBasisPerUnit)
	}
	return nil
}

type Lots []TaxLot

// SortFIFO orders lots oldest first. Lots bought the same day keep a stable order by ID.
func (l Lots) SortFIFO() {
	sort.SliceStable(l, func(i, j int) bool {
		if l[i].PurchaseDate != l[j].PurchaseDate {
			return l[i].PurchaseDate.Before(l[j].PurchaseDate)
		}
		return l[i].ID < l[j].ID
	})
}

// Available returns the sum of remaining quantities.
func (l Lots) Available() Quantity {
	var total Quantity
	for _, lot := range l {
		total = total.Add(lot.RemainingQuantity)
	}
	return total
}

// LotUpdate is a version-checked change of a lot's remaining quantity.
type LotUpdate struct {
	LotID             string    `json:"lotId"`
	ExpectedVersion   int64     `json:"expectedVersion"`
	RemainingQuantity Quantity  `json:"remainingQuantity"`
	Status            LotStatus `json:"status"`
}

// MarshalJSON adds the derived status to the lot fields.
func (l TaxLot) MarshalJSON() ([]byte, error) {
	type plain TaxLot
	var w jsonObjectWriter
	w.EmbedFrom(plain(l))
	w.Append("status", l.Status())
	return w.MarshalJSON()
}
