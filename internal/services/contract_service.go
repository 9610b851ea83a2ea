package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "finbook/internal/errors"
	"finbook/internal/models"
	"finbook/internal/recurrence"
)

// contractService handles contract-related business logic. Every contract
// it returns carries its payment schedule as of now().
type contractService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewContractService creates a new ContractServicer.
func NewContractService(db *gorm.DB) ContractServicer {
	return &contractService{db: db, now: time.Now}
}

// CreateContract creates a contract after checking its references.
func (s *contractService) CreateContract(in ContractInput) (*models.Contract, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	contract := &models.Contract{}
	applyContractInput(contract, in)
	if err := s.db.Create(contract).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetContractByID(contract.ID)
}

// ListContracts returns contracts ordered by name, optionally only active or
// inactive ones.
func (s *contractService) ListContracts(isActive *bool) ([]models.Contract, error) {
	q := s.db.Order("name").Order("id")
	if isActive != nil {
		q = q.Where("is_active = ?", *isActive)
	}
	var contracts []models.Contract
	if err := q.Find(&contracts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	today := s.now()
	for i := range contracts {
		attachSchedule(&contracts[i], today)
	}
	return contracts, nil
}

// GetContractByID retrieves a contract with its schedule.
func (s *contractService) GetContractByID(id string) (*models.Contract, error) {
	if !validIDs(id) {
		return nil, apperrors.ErrContractNotFound
	}
	var contract models.Contract
	if err := s.db.Where("id = ?", id).First(&contract).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrContractNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	attachSchedule(&contract, s.now())
	return &contract, nil
}

// UpdateContract replaces all writable fields of a contract.
func (s *contractService) UpdateContract(id string, in ContractInput) (*models.Contract, error) {
	contract, err := s.GetContractByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(in); err != nil {
		return nil, err
	}

	applyContractInput(contract, in)
	contract.Schedule = nil
	if err := s.db.Save(contract).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetContractByID(id)
}

// DeleteContract removes a contract that no record references.
func (s *contractService) DeleteContract(id string) error {
	if _, err := s.GetContractByID(id); err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.Record{}).Where("contract_id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrContractInUse
	}

	if err := s.db.Delete(&models.Contract{}, "id = ?", id).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func (s *contractService) validate(in ContractInput) error {
	if in.Name == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "contract name is required")
	}
	if !recurrence.IsValidCycle(in.PaymentCycle) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("invalid payment cycle %q", in.PaymentCycle))
	}
	for name, v := range map[string]*int{
		"cancelation_period": in.CancelationPeriod,
		"minimum_duration":   in.MinimumDuration,
		"renewal_duration":   in.RenewalDuration,
	} {
		if v != nil && *v < 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, name+" must not be negative")
		}
	}
	if err := exists(s.db, &models.Account{}, in.AccountID, apperrors.ErrAccountNotFound); err != nil {
		return err
	}
	return exists(s.db, &models.Category{}, in.CategoryID, apperrors.ErrCategoryNotFound)
}

func applyContractInput(c *models.Contract, in ContractInput) {
	c.Name = in.Name
	c.IsActive = in.IsActive
	c.DateStart = in.DateStart
	c.CancelationPeriod = in.CancelationPeriod
	c.MinimumDuration = in.MinimumDuration
	c.RenewalDuration = in.RenewalDuration
	c.AccountID = in.AccountID
	c.Amount = in.Amount
	c.PaymentDate = in.PaymentDate
	c.PaymentCycle = in.PaymentCycle
	c.CategoryID = in.CategoryID
}

func attachSchedule(c *models.Contract, today time.Time) {
	schedule := recurrence.Compute(c.Terms(), today)
	c.Schedule = &schedule
}

// exists returns notFound unless a row of model with the given id exists.
func exists(db *gorm.DB, model any, id string, notFound *apperrors.AppError) error {
	if !validIDs(id) {
		return notFound
	}
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count == 0 {
		return notFound
	}
	return nil
}
