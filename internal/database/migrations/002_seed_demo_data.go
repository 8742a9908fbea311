package migrations

import (
	"github.com/ksred/innovest-portal/internal/sandbox"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Demo identities the default DEMO_ACCOUNTS log in as
const (
	DemoInvestorID  int64 = 6634104
	DemoInnovatorID int64 = 1
)

func int64p(v int64) *int64 { return &v }

// SeedDemoData inserts the demo marketplace. Rows that already exist are left
// alone so the migration can run on every start.
func SeedDemoData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		seed := func(rec interface{}, key string, value interface{}) error {
			return tx.Where(key+" = ?", value).FirstOrCreate(rec).Error
		}

		innovators := []sandbox.Innovator{
			{ID: DemoInnovatorID, FirstName: "Ada", LastName: "Lovelace", Email: "ada@innovest.dev", Birthday: "1990-12-10", Gender: "Female"},
		}
		for i := range innovators {
			if err := seed(&innovators[i], "id", innovators[i].ID); err != nil {
				return err
			}
		}

		investors := []sandbox.Investor{
			{ID: DemoInvestorID, FirstName: "Grace", LastName: "Hopper", Email: "grace@innovest.dev", Company: "Cobol Capital"},
			{ID: 42, FirstName: "Alan", LastName: "Turing", Email: "alan@innovest.dev", Company: "Enigma Ventures"},
			{ID: 77, FirstName: "Katherine", LastName: "Johnson", Email: "katherine@innovest.dev", Company: "Orbit Partners"},
		}
		for i := range investors {
			if err := seed(&investors[i], "id", investors[i].ID); err != nil {
				return err
			}
		}

		inventions := []sandbox.Invention{
			{
				InventionID:        4001,
				InventorID:         DemoInnovatorID,
				ProductDescription: "Solar roof tiles that store energy for night use",
				Capital:            decimal.NewFromInt(12000),
				ExpectedCapital:    decimal.NewFromInt(50000),
				ModeOfSale:         "DIRECT",
				PaymentPackage:     "STANDARD",
				SalesData:          "120,180,260",
				AOI:                "Energy,Construction",
				BidStartDate:       "2026-10-01",
				BidStartTime:       "09:00:00",
				BidEndTime:         "18:00:00",
				IsLive:             true,
				IsPaid:             true,
			},
			{
				InventionID:        4002,
				InventorID:         DemoInnovatorID,
				ProductDescription: "Self-cleaning window coating",
				Capital:            decimal.NewFromInt(3000),
				ExpectedCapital:    decimal.NewFromInt(20000),
				ModeOfSale:         "LICENSE",
				PaymentPackage:     "PREMIUM",
				AOI:                "Materials",
			},
			{
				InventionID:        4010,
				InventorID:         DemoInnovatorID,
				InvestorID:         int64p(DemoInvestorID),
				ProductDescription: "Portable water purifier",
				Capital:            decimal.NewFromInt(8000),
				ExpectedCapital:    decimal.NewFromInt(30000),
				ModeOfSale:         "PARTNERSHIP",
				PaymentPackage:     "ENTERPRISE",
				SalesData:          "40,55",
				AOI:                "Health",
				BidStartDate:       "2026-09-01",
				BidStartTime:       "10:00:00",
				BidEndTime:         "16:00:00",
				IsPaid:             true,
			},
		}
		for i := range inventions {
			if err := seed(&inventions[i], "invention_id", inventions[i].InventionID); err != nil {
				return err
			}
		}

		bids := []sandbox.Bid{
			{ID: 1, InventionID: 4001, InvestorID: 42, BidAmount: decimal.NewFromInt(7000), Equity: decimal.NewFromInt(10)},
			{ID: 2, InventionID: 4001, InvestorID: 77, BidAmount: decimal.NewFromInt(5500), Equity: decimal.NewFromInt(12)},
			{ID: 3, InventionID: 4010, InvestorID: DemoInvestorID, BidAmount: decimal.NewFromInt(30000), Equity: decimal.NewFromInt(15), Selected: true},
		}
		for i := range bids {
			if err := seed(&bids[i], "id", bids[i].ID); err != nil {
				return err
			}
		}

		story := sandbox.Story{
			ID:           1,
			InventionID:  "4010",
			InventorName: "Ada Lovelace",
			InvestorID:   "6634104",
			Message:      "Our purifier found its investor within a week of going live.",
		}
		return seed(&story, "id", story.ID)
	})
}
