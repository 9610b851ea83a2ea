package testutil_test

import (
	"testing"
	"time"

	"finbook/internal/errors"
	"finbook/internal/models"
	"finbook/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"accounts", "categories", "contracts", "records", "transactions", "transaction_records", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)

	account := testutil.CreateTestAccount(t, db)
	if account.ID == "" {
		t.Fatal("account should have an ID")
	}
	if account.Type != models.AccountTypeChecking {
		t.Errorf("expected checking account, got %s", account.Type)
	}

	parent := testutil.CreateTestCategory(t, db)
	child := testutil.CreateTestCategoryNamed(t, db, "Child", &parent.ID, nil)
	if child.ParentID == nil || *child.ParentID != parent.ID {
		t.Error("child should reference its parent")
	}

	contract := testutil.CreateTestContract(t, db, account.ID, child.ID)
	if contract.PaymentCycle != "m" {
		t.Errorf("expected monthly contract, got %s", contract.PaymentCycle)
	}

	record := testutil.CreateTestRecord(t, db, account.ID, child.ID, -12.5, testutil.Date(2024, time.March, 1))
	tx := testutil.CreateTestTransaction(t, db, account.ID, "-12.50", testutil.Date(2024, time.March, 2))
	testutil.LinkTestRecords(t, db, tx, record)

	var loaded models.Transaction
	if err := db.Preload("Records").First(&loaded, "id = ?", tx.ID).Error; err != nil {
		t.Fatalf("reload transaction: %v", err)
	}
	if len(loaded.Records) != 1 || !loaded.IsImported || loaded.IsNew {
		t.Errorf("expected one linked record and imported state, got %d records new=%v imported=%v",
			len(loaded.Records), loaded.IsNew, loaded.IsImported)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrAccountNotFound, "custom message")
	testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
