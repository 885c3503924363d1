package capgains

import "github.com/etnz/capgains/date"

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// newLot is a helper for test to create an open lot of holding "h1" at version 1.
func newLot(id, purchased string, qty float64, cost Money) TaxLot {
	return TaxLot{
		ID:                id,
		HoldingID:         "h1",
		PurchaseDate:      date.MustParse(purchased),
		OriginalQuantity:  Q(qty),
		RemainingQuantity: Q(qty),
		CostBasisPerUnit:  cost,
		Version:           1,
	}
}

// sell is a helper for test to create a sale request on holding "h1".
func sell(qty float64, price Money, on string) SaleRequest {
	return SaleRequest{HoldingID: "h1", Quantity: Q(qty), SalePrice: price, SaleDate: date.MustParse(on)}
}
