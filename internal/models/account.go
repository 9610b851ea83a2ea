package models

// AccountType represents the kind of bank account
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeDaily    AccountType = "daily"
	AccountTypeSavings  AccountType = "savings"
	AccountTypeDepot    AccountType = "depot"
)

// AccountTypes lists every valid account type.
var AccountTypes = []AccountType{AccountTypeChecking, AccountTypeDaily, AccountTypeSavings, AccountTypeDepot}

// IsValidAccountType reports whether t is one of AccountTypes.
func IsValidAccountType(t string) bool {
	for _, at := range AccountTypes {
		if string(at) == t {
			return true
		}
	}
	return false
}

// Account represents a bank account. The IBAN, when present, identifies the
// account during statement import.
type Account struct {
	Base
	IBAN *string     `gorm:"uniqueIndex;size:34" json:"iban"`
	Name string      `gorm:"not null" json:"name"`
	Type AccountType `gorm:"not null;default:'checking'" json:"type"`

	// Relationships
	Transactions []Transaction `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
}
