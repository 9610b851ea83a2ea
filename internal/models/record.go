package models

import "time"

// Record is a manually categorized bookkeeping entry. Records are linked to
// the bank transactions they explain.
type Record struct {
	Base
	AccountID        string    `gorm:"type:uuid;not null;index" json:"account_id"`
	CategoryID       string    `gorm:"type:uuid;not null;index" json:"category_id"`
	ContractID       *string   `gorm:"type:uuid;index" json:"contract_id"`
	CounterBookingID *string   `gorm:"type:uuid;uniqueIndex" json:"counter_booking_id"`
	Subject          string    `gorm:"not null" json:"subject"`
	Date             time.Time `gorm:"not null;index" json:"date"`
	Amount           float64   `gorm:"not null" json:"amount"`

	// TransactionCount is filled by queries that select it.
	TransactionCount int64 `gorm:"->;-:migration" json:"transaction_count"`

	// Relationships
	Account        *Account      `gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT" json:"-"`
	Category       *Category     `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`
	Contract       *Contract     `gorm:"foreignKey:ContractID;constraint:OnDelete:RESTRICT" json:"-"`
	CounterBooking *Record       `gorm:"foreignKey:CounterBookingID;constraint:OnDelete:RESTRICT" json:"-"`
	Transactions   []Transaction `gorm:"many2many:transaction_records;constraint:OnDelete:CASCADE" json:"-"`
}
