package migrations

import (
	"gorm.io/gorm"
)

// AddMarketplaceIndexes creates the indexes behind the portal's hot queries
func AddMarketplaceIndexes(db *gorm.DB) error {
	indexes := []string{
		// Bid listing per invention
		`CREATE INDEX IF NOT EXISTS idx_bids_invention_id
		 ON bids(invention_id)`,

		// Catalogue of unfunded inventions
		`CREATE INDEX IF NOT EXISTS idx_inventions_investor_id
		 ON inventions(investor_id)`,

		// Payment lookups by invention
		`CREATE INDEX IF NOT EXISTS idx_payments_invention_id
		 ON payments(invention_id)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
