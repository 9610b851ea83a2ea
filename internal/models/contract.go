package models

import (
	"time"

	"finbook/internal/recurrence"
)

// Contract is a recurring payment obligation such as rent or an insurance.
// Durations are in months; nil means not applicable.
type Contract struct {
	Base
	Name              string           `gorm:"not null" json:"name"`
	IsActive          bool             `gorm:"not null;default:true" json:"is_active"`
	DateStart         time.Time        `gorm:"not null" json:"date_start"`
	CancelationPeriod *int             `json:"cancelation_period"`
	MinimumDuration   *int             `json:"minimum_duration"`
	RenewalDuration   *int             `json:"renewal_duration"`
	AccountID         string           `gorm:"type:uuid;not null;index" json:"account_id"`
	Amount            float64          `gorm:"not null" json:"amount"`
	PaymentDate       *time.Time       `json:"payment_date"`
	PaymentCycle      recurrence.Cycle `gorm:"size:1;not null" json:"payment_cycle"`
	CategoryID        string           `gorm:"type:uuid;not null;index" json:"category_id"`

	// Schedule is computed for the response, never stored.
	Schedule *recurrence.Schedule `gorm:"-" json:"schedule,omitempty"`

	// Relationships
	Account  *Account  `gorm:"foreignKey:AccountID;constraint:OnDelete:RESTRICT" json:"-"`
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`
}

// Terms returns the fields the recurrence engine works on.
func (c *Contract) Terms() recurrence.Terms {
	return recurrence.Terms{
		DateStart:         c.DateStart,
		CancelationPeriod: c.CancelationPeriod,
		MinimumDuration:   c.MinimumDuration,
		RenewalDuration:   c.RenewalDuration,
		Amount:            c.Amount,
		PaymentDate:       c.PaymentDate,
		PaymentCycle:      c.PaymentCycle,
	}
}
