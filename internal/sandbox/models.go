package sandbox

import (
	"strconv"
	"strings"
	"time"

	"github.com/ksred/innovest-portal/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Innovator struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `gorm:"uniqueIndex" json:"email"`
	ProfilePicture string    `json:"profilePicture"`
	Birthday       string    `json:"birthday"`
	Gender         string    `json:"gender"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

type Investor struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Company        string    `json:"company"`
	Phone          string    `json:"phone"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"-"`
}

type Invention struct {
	InventionID        int64           `gorm:"primaryKey"`
	InventorID         int64           `gorm:"index"`
	InvestorID         *int64
	ProductDescription string
	Capital            decimal.Decimal `gorm:"type:decimal(20,2)"`
	ExpectedCapital    decimal.Decimal `gorm:"type:decimal(20,2)"`
	BreakupRevenue     string
	CostDescription    string
	ModeOfSale         string
	PaymentPackage     string
	SalesData          string // comma separated integers
	AOI                string // comma separated areas of interest
	ProductVideo       string
	BidStartDate       string
	BidStartTime       string
	BidEndTime         string
	IsLive             bool
	IsPaid             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Bid is a stored bid. ID doubles as the order id; an investor holds at most
// one bid per invention.
type Bid struct {
	ID          int64           `gorm:"primaryKey"`
	InventionID int64           `gorm:"uniqueIndex:idx_bids_invention_investor"`
	InvestorID  int64           `gorm:"uniqueIndex:idx_bids_invention_investor"`
	BidAmount   decimal.Decimal `gorm:"type:decimal(20,2)"`
	Equity      decimal.Decimal `gorm:"type:decimal(5,2)"`
	Selected    bool
	CreatedAt   time.Time
}

type Payment struct {
	gorm.Model      `json:"-"`
	SessionID       string          `gorm:"uniqueIndex" json:"sessionId"`
	InventionID     int64           `json:"inventionId"`
	PackageName     string          `json:"packageName"`
	InventorEmail   string          `json:"inventorEmail"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,2)" json:"amount"`
	PaymentIntentID string          `json:"paymentIntentId"`
	PaymentDatetime string          `json:"paymentDatetime"`
}

type Story struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	InventionID  string    `json:"inventionId"`
	InventorName string    `json:"inventorName"`
	InvestorID   string    `json:"investorId"`
	Message      string    `json:"message"`
	ProfilePhoto string    `json:"profilePhoto"`
	CreatedAt    time.Time `json:"-"`
}

// Models lists every table the sandbox owns, in migration order
func Models() []interface{} {
	return []interface{}{
		&Innovator{},
		&Investor{},
		&Invention{},
		&Bid{},
		&Payment{},
		&Story{},
	}
}

func (i Invention) toAPI() types.Innovation {
	out := types.Innovation{
		InventionID:        i.InventionID,
		InventorID:         i.InventorID,
		InvestorID:         i.InvestorID,
		ProductDescription: i.ProductDescription,
		Capital:            i.Capital,
		ExpectedCapital:    i.ExpectedCapital,
		BreakupRevenue:     i.BreakupRevenue,
		CostDescription:    i.CostDescription,
		ModeOfSale:         i.ModeOfSale,
		PaymentPackage:     i.PaymentPackage,
		ProductVideo:       i.ProductVideo,
		BidStartDate:       i.BidStartDate,
		BidStartTime:       i.BidStartTime,
		BidEndTime:         i.BidEndTime,
		IsLive:             i.IsLive,
		IsPaid:             i.IsPaid,
	}
	for _, item := range splitList(i.SalesData) {
		if n, err := strconv.Atoi(item); err == nil {
			out.SalesData = append(out.SalesData, n)
		}
	}
	out.AOI = splitList(i.AOI)
	return out
}

func (b Bid) toAPI() types.Bid {
	return types.Bid{
		OrderID:     types.OrderID(strconv.FormatInt(b.ID, 10)),
		InventionID: b.InventionID,
		InvestorID:  b.InvestorID,
		BidAmount:   b.BidAmount,
		Equity:      b.Equity,
		Selected:    b.Selected,
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
