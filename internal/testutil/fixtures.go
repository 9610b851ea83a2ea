package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finbook/internal/models"
	"finbook/internal/recurrence"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// CreateTestAccount creates a checking account with a unique IBAN-less name.
func CreateTestAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()

	account := &models.Account{
		Name: fmt.Sprintf("Test Account %d", nextID()),
		Type: models.AccountTypeChecking,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestAccountWithIBAN creates an account identified by iban.
func CreateTestAccountWithIBAN(t *testing.T, db *gorm.DB, iban string) *models.Account {
	t.Helper()

	account := &models.Account{
		IBAN: &iban,
		Name: fmt.Sprintf("Test Account %d", nextID()),
		Type: models.AccountTypeChecking,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	return account
}

// CreateTestCategory creates a root category with a unique name.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, fmt.Sprintf("Test Category %d", nextID()), nil, nil)
}

// CreateTestCategoryNamed creates a category with the given name, optional
// parent and optional color.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, name string, parentID, color *string) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:     name,
		ParentID: parentID,
		Color:    color,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestContract creates an active monthly contract.
func CreateTestContract(t *testing.T, db *gorm.DB, accountID, categoryID string) *models.Contract {
	t.Helper()

	paymentDate := Date(2024, time.January, 15)
	contract := &models.Contract{
		Name:         fmt.Sprintf("Test Contract %d", nextID()),
		IsActive:     true,
		DateStart:    Date(2024, time.January, 1),
		AccountID:    accountID,
		Amount:       -49.99,
		PaymentDate:  &paymentDate,
		PaymentCycle: recurrence.CycleMonthly,
		CategoryID:   categoryID,
	}
	if err := db.Create(contract).Error; err != nil {
		t.Fatalf("failed to create test contract: %v", err)
	}
	return contract
}

// CreateTestRecord creates a record with the given amount and date.
func CreateTestRecord(t *testing.T, db *gorm.DB, accountID, categoryID string, amount float64, date time.Time) *models.Record {
	t.Helper()

	record := &models.Record{
		AccountID:  accountID,
		CategoryID: categoryID,
		Subject:    fmt.Sprintf("Test Record %d", nextID()),
		Date:       date,
		Amount:     amount,
	}
	if err := db.Create(record).Error; err != nil {
		t.Fatalf("failed to create test record: %v", err)
	}
	return record
}

// CreateTestTransaction creates an imported bank transaction with a unique
// purpose so natural keys never collide.
func CreateTestTransaction(t *testing.T, db *gorm.DB, accountID string, amount string, bookingDate time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		AccountID:       accountID,
		BookingDate:     bookingDate,
		ValueDate:       bookingDate,
		Creditor:        "Test Creditor",
		Amount:          decimal.RequireFromString(amount),
		Currency:        "EUR",
		TransactionType: "Lastschrift",
		Purpose:         fmt.Sprintf("Test Purpose %d", nextID()),
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// LinkTestRecords links records to a transaction directly in the join table.
func LinkTestRecords(t *testing.T, db *gorm.DB, tx *models.Transaction, records ...*models.Record) {
	t.Helper()

	for _, r := range records {
		if err := db.Model(tx).Association("Records").Append(r); err != nil {
			t.Fatalf("failed to link record: %v", err)
		}
	}
}
