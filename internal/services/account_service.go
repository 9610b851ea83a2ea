package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "finbook/internal/errors"
	"finbook/internal/models"
	"finbook/internal/validator"
)

// accountService handles account-related business logic.
type accountService struct {
	db *gorm.DB
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB) AccountServicer {
	return &accountService{db: db}
}

// CreateAccount creates a bank account. The IBAN is optional; when given it
// must be unique since the importer resolves accounts by it.
func (s *accountService) CreateAccount(name string, iban *string, accountType models.AccountType) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if accountType == "" {
		accountType = models.AccountTypeChecking
	}
	iban = normalizeIBAN(iban)

	if err := s.checkIBANAvailable(iban, ""); err != nil {
		return nil, err
	}

	account := &models.Account{
		IBAN: iban,
		Name: name,
		Type: accountType,
	}
	if err := s.db.Create(account).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return account, nil
}

// ListAccounts returns every account ordered by name.
func (s *accountService) ListAccounts() ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.Order("name").Order("id").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return accounts, nil
}

// GetAccountByID retrieves an account by ID.
func (s *accountService) GetAccountByID(id string) (*models.Account, error) {
	if !validIDs(id) {
		return nil, apperrors.ErrAccountNotFound
	}
	var account models.Account
	if err := s.db.Where("id = ?", id).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// UpdateAccount replaces the writable fields of an account.
func (s *accountService) UpdateAccount(id string, name string, iban *string, accountType models.AccountType) (*models.Account, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	account, err := s.GetAccountByID(id)
	if err != nil {
		return nil, err
	}

	iban = normalizeIBAN(iban)
	if err := s.checkIBANAvailable(iban, id); err != nil {
		return nil, err
	}

	if accountType == "" {
		accountType = account.Type
	}

	err = s.db.Model(account).Select("iban", "name", "type").Updates(&models.Account{
		IBAN: iban,
		Name: name,
		Type: accountType,
	}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetAccountByID(id)
}

// DeleteAccount deletes an account and its imported transactions. Accounts
// referenced by records or contracts are protected.
func (s *accountService) DeleteAccount(id string) error {
	if _, err := s.GetAccountByID(id); err != nil {
		return err
	}

	for _, model := range []any{&models.Record{}, &models.Contract{}} {
		var count int64
		if err := s.db.Model(model).Where("account_id = ?", id).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrAccountInUse
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		owned := tx.Model(&models.Transaction{}).Select("id").Where("account_id = ?", id)
		if err := tx.Exec("DELETE FROM transaction_records WHERE transaction_id IN (?)", owned).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Transaction{}).Where("account_id = ?", id).
			Update("is_counter_to_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Account{}, "id = ?", id).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// checkIBANAvailable fails with ErrDuplicateIBAN when another account than
// exceptID already uses iban.
func (s *accountService) checkIBANAvailable(iban *string, exceptID string) error {
	if iban == nil {
		return nil
	}
	q := s.db.Model(&models.Account{}).Where("iban = ?", *iban)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateIBAN
	}
	return nil
}

func normalizeIBAN(iban *string) *string {
	if iban == nil {
		return nil
	}
	n := validator.NormalizeIBAN(*iban)
	if n == "" {
		return nil
	}
	return &n
}
