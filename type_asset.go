package capgains

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetClass defines how gains on an asset are treated for tax purposes.
type AssetClass int

const (
	// Stock is a directly held share. Gains are fully taxable and net only against stock losses.
	Stock AssetClass = iota
	// ETF is an exchange traded investment fund.
	ETF
	// Bond is a bond held through a fund vehicle.
	Bond
	// Fund is any other investment fund.
	Fund
	// Crypto is a crypto currency, a private sale asset exempt after one year.
	Crypto
	// PreciousMetal is physical gold, silver and the like, a private sale asset exempt after one year.
	PreciousMetal
)

func (c AssetClass) String() string {
	switch c {
	case Stock:
		return "stock"
	case ETF:
		return "etf"
	case Bond:
		return "bond"
	case Fund:
		return "fund"
	case Crypto:
		return "crypto"
	case PreciousMetal:
		return "precious_metal"
	default:
		return "unknown"
	}
}

// ParseAssetClass parses a string into an AssetClass.
func ParseAssetClass(s string) (AssetClass, error) {
	switch s {
	case "stock":
		return Stock, nil
	case "etf":
		return ETF, nil
	case "bond":
		return Bond, nil
	case "fund":
		return Fund, nil
	case "crypto":
		return Crypto, nil
	case "precious_metal":
		return PreciousMetal, nil
	default:
		return 0, fmt.Errorf("unknown asset class: %q", s)
	}
}

// IsFundLike reports whether the class is taxed as an investment fund.
func (c AssetClass) IsFundLike() bool { return c == ETF || c == Bond || c == Fund }

// IsTimeExempt reports whether gains become tax free after the speculation period.
func (c AssetClass) IsTimeExempt() bool { return c == Crypto || c == PreciousMetal }

// TaxCategory returns the category under which sale gains of this class are reported.
func (c AssetClass) TaxCategory() TaxCategory {
	switch {
	case c.IsFundLike():
		return CapitalGainsFunds
	case c == Crypto:
		return CapitalGainsCrypto
	case c == PreciousMetal:
		return CapitalGainsPreciousMetals
	default:
		return CapitalGainsStocks
	}
}

// FundCategory is the asset allocation class of an investment fund that sets its partial exemption.
type FundCategory string

const (
	NoFundCategory   FundCategory = ""
	EquityFund30     FundCategory = "equity_fund_30"
	MixedFund15      FundCategory = "mixed_fund_15"
	RealEstateFund60 FundCategory = "real_estate_fund_60"
	BondFund0        FundCategory = "bond_fund_0"
)

var partialExemptionRates = map[FundCategory]decimal.Decimal{
	EquityFund30:     rate("0.30"),
	MixedFund15:      rate("0.15"),
	RealEstateFund60: rate("0.60"),
	BondFund0:        decimal.Zero,
}

// PartialExemptionRate returns the share of a fund gain that is tax free. Unmapped categories get 0.
func (f FundCategory) PartialExemptionRate() decimal.Decimal {
	if r, ok := partialExemptionRates[f]; ok {
		return r
	}
	return decimal.Zero
}

// ParseFundCategory parses a fund category. The empty string is NoFundCategory.
func ParseFundCategory(s string) (FundCategory, error) {
	f := FundCategory(s)
	if f == NoFundCategory {
		return f, nil
	}
	if _, ok := partialExemptionRates[f]; !ok {
		return NoFundCategory, fmt.Errorf("unknown fund category: %q", s)
	}
	return f, nil
}

// Asset identifies an instrument and its tax treatment.
// The class is reference data: it must not change once gains were recorded against the asset.
type Asset struct {
	ID           string       `json:"id"`
	Symbol       string       `json:"symbol"`
	Name         string       `json:"name,omitempty"`
	Class        AssetClass   `json:"class"`
	FundCategory FundCategory `json:"fundCategory,omitempty"`
}

func (c AssetClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *AssetClass) UnmarshalText(b []byte) error {
	v, err := ParseAssetClass(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Portfolio groups holdings of one owner. Its owner's tax settings drive the summary.
type Portfolio struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Owner    string `json:"owner"` // user email, key of the TaxSettings
	Currency string `json:"currency"`
}

// Holding is a position of a portfolio in one asset. Lots belong to a holding.
type Holding struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolioId"`
	AssetID     string `json:"assetId"`
}
