package types

import "github.com/shopspring/decimal"

// Innovation is an invention registered by an innovator and offered to
// investors. Investors see the same record as a product.
type Innovation struct {
	InventionID        int64           `json:"inventionId"`
	InventorID         int64           `json:"inventorId"`
	InvestorID         *int64          `json:"investorId,omitempty"` // set once funded
	ProductDescription string          `json:"productDescription"`
	Capital            decimal.Decimal `json:"capital"`
	ExpectedCapital    decimal.Decimal `json:"expectedCapital"`
	BreakupRevenue     string          `json:"breakupRevenue,omitempty"`
	CostDescription    string          `json:"costDescription,omitempty"`
	ModeOfSale         string          `json:"modeOfSale,omitempty"`     // DIRECT, SHARED, PARTNERSHIP, LICENSE
	PaymentPackage     string          `json:"paymentPackage,omitempty"` // STANDARD, ENTERPRISE, PREMIUM
	SalesData          []int           `json:"salesData,omitempty"`
	AOI                []string        `json:"aoi,omitempty"`
	ProductVideo       string          `json:"productVideo,omitempty"`
	BidStartDate       string          `json:"bidStartDate,omitempty"`
	BidStartTime       string          `json:"bidStartTime,omitempty"`
	BidEndTime         string          `json:"bidEndTime,omitempty"`
	IsLive             bool            `json:"isLive"`
	IsPaid             bool            `json:"isPaid"`
}

// Funded reports whether an investor has been selected for the invention
func (i Innovation) Funded() bool {
	return i.InvestorID != nil && *i.InvestorID != 0
}

// Product is the investor-facing name for an innovation
type Product = Innovation
