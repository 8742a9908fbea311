package sandbox

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicateBid    = errors.New("You have already placed a bid on this invention")
	ErrAlreadySelected = errors.New("A bid has already been selected for this invention")
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func first[T any](q *gorm.DB, out *T) (*T, error) {
	if err := q.First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

func (d *Database) GetInnovator(id int64) (*Innovator, error) {
	return first(d.db.Where("id = ?", id), &Innovator{})
}

func (d *Database) GetInnovatorByEmail(email string) (*Innovator, error) {
	return first(d.db.Where("email = ?", email), &Innovator{})
}

func (d *Database) CreateInnovator(innovator *Innovator) error {
	return d.db.Create(innovator).Error
}

func (d *Database) UpdateInnovator(innovator *Innovator) error {
	return d.db.Save(innovator).Error
}

func (d *Database) GetInvestor(id int64) (*Investor, error) {
	return first(d.db.Where("id = ?", id), &Investor{})
}

func (d *Database) GetInvention(id int64) (*Invention, error) {
	return first(d.db.Where("invention_id = ?", id), &Invention{})
}

func (d *Database) ListInventionsByInventor(inventorID int64) ([]Invention, error) {
	var out []Invention
	err := d.db.Where("inventor_id = ?", inventorID).Order("invention_id").Find(&out).Error
	return out, err
}

// ListProducts returns every invention not yet funded
func (d *Database) ListProducts() ([]Invention, error) {
	var out []Invention
	err := d.db.Where("investor_id IS NULL").Order("invention_id").Find(&out).Error
	return out, err
}

func (d *Database) CreateInvention(invention *Invention) error {
	return d.db.Create(invention).Error
}

func (d *Database) UpdateInvention(invention *Invention) error {
	return d.db.Save(invention).Error
}

func (d *Database) ListBids(inventionID int64) ([]Bid, error) {
	var out []Bid
	err := d.db.Where("invention_id = ?", inventionID).Order("id").Find(&out).Error
	return out, err
}

func (d *Database) FindBid(inventionID, investorID int64) (*Bid, error) {
	return first(d.db.Where("invention_id = ? AND investor_id = ?", inventionID, investorID), &Bid{})
}

// CreateBid stores a bid, refusing a second one from the same investor
func (d *Database) CreateBid(bid *Bid) error {
	err := d.db.Create(bid).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateBid
	}
	return err
}

// SelectBid marks a bid as selected and funds its invention in a transaction
func (d *Database) SelectBid(orderID int64) (*Bid, error) {
	var selected Bid
	err := d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", orderID).First(&selected).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var invention Invention
		if err := tx.Where("invention_id = ?", selected.InventionID).First(&invention).Error; err != nil {
			return fmt.Errorf("load invention %d: %w", selected.InventionID, err)
		}
		if invention.InvestorID != nil {
			return ErrAlreadySelected
		}

		selected.Selected = true
		if err := tx.Save(&selected).Error; err != nil {
			return err
		}
		investorID := selected.InvestorID
		invention.InvestorID = &investorID
		invention.IsLive = false
		return tx.Save(&invention).Error
	})
	if err != nil {
		return nil, err
	}
	return &selected, nil
}

func (d *Database) CreatePayment(payment *Payment, invention *Invention) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		return tx.Save(invention).Error
	})
}

func (d *Database) GetPayment(sessionID string) (*Payment, error) {
	return first(d.db.Where("session_id = ?", sessionID), &Payment{})
}

func (d *Database) ListStories() ([]Story, error) {
	var out []Story
	err := d.db.Order("id").Find(&out).Error
	return out, err
}

func (d *Database) CreateStory(story *Story) error {
	return d.db.Create(story).Error
}
