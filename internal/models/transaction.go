package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NaturalKeyIndex is the unique index over the fields that identify an
// imported bank transaction.
const NaturalKeyIndex = "uq_transactions_natural_key"

// Transaction is one row of an imported bank statement.
type Transaction struct {
	Base
	AccountID       string          `gorm:"type:uuid;not null;uniqueIndex:uq_transactions_natural_key,priority:1" json:"account_id"`
	BookingDate     time.Time       `gorm:"not null;index;uniqueIndex:uq_transactions_natural_key,priority:2" json:"booking_date"`
	ValueDate       time.Time       `gorm:"not null;uniqueIndex:uq_transactions_natural_key,priority:3" json:"value_date"`
	Creditor        string          `gorm:"not null;uniqueIndex:uq_transactions_natural_key,priority:4" json:"creditor"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);not null;uniqueIndex:uq_transactions_natural_key,priority:5" json:"amount"`
	Currency        string          `gorm:"size:3;not null;uniqueIndex:uq_transactions_natural_key,priority:6" json:"currency"`
	TransactionType string          `gorm:"not null;uniqueIndex:uq_transactions_natural_key,priority:7" json:"transaction_type"`
	Purpose         string          `gorm:"not null;uniqueIndex:uq_transactions_natural_key,priority:8" json:"purpose"`
	IsIgnored       bool            `gorm:"not null;default:false" json:"is_ignored"`
	IsHighlighted   bool            `gorm:"not null;default:false" json:"is_highlighted"`
	IsCounterToID   *string         `gorm:"type:uuid;index" json:"is_counter_to_id"`

	// Derived after load from the linked records.
	IsNew      bool `gorm:"-" json:"is_new"`
	IsImported bool `gorm:"-" json:"is_imported"`

	// Relationships
	Account     *Account     `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
	IsCounterTo *Transaction `gorm:"foreignKey:IsCounterToID;constraint:OnDelete:SET NULL" json:"-"`
	Records     []Record     `gorm:"many2many:transaction_records;constraint:OnDelete:CASCADE" json:"records"`
}

// AfterFind derives is_new and is_imported. Callers that need accurate
// values must preload Records.
func (t *Transaction) AfterFind(tx *gorm.DB) error {
	t.Derive()
	return nil
}

// Derive recomputes the derived flags from the loaded records.
func (t *Transaction) Derive() {
	linked := len(t.Records) > 0
	t.IsNew = !linked && !t.IsIgnored
	t.IsImported = linked && !t.IsIgnored
}
