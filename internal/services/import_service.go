package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "finbook/internal/errors"
	"finbook/internal/logger"
	"finbook/internal/models"
	"finbook/internal/statement"
)

// importService turns bank statement files into transactions, skipping rows
// that were imported before.
type importService struct {
	db *gorm.DB
}

// NewImportService creates a new ImportServicer.
func NewImportService(db *gorm.DB) ImportServicer {
	return &importService{db: db}
}

// ImportStatements parses every file before writing anything, then stores all
// of them in one database transaction. A failure in any file rolls back the
// whole request.
func (s *importService) ImportStatements(files [][]byte) (*ImportSummary, error) {
	if len(files) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrMissingParameter, "at least one statement file is required")
	}

	statements := make([]*statement.Statement, len(files))
	for i, data := range files {
		st, err := statement.Parse(data)
		if err != nil {
			return nil, apperrors.WithMessage(apperrors.ErrMalformedStatement, fmt.Sprintf("file %d: %v", i+1, err))
		}
		statements[i] = st
	}

	summary := &ImportSummary{Files: make([]FileSummary, 0, len(statements))}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, st := range statements {
			account, err := resolveAccount(tx, st)
			if err != nil {
				return err
			}

			created, err := insertRows(tx, account.ID, st.Rows)
			if err != nil {
				return err
			}

			summary.Files = append(summary.Files, FileSummary{
				IBAN:      st.IBAN,
				AccountID: account.ID,
				Created:   created,
				Total:     len(st.Rows),
			})
			summary.Created += created
			summary.Total += len(st.Rows)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, f := range summary.Files {
		logger.Get().Infow("statement imported",
			"iban", f.IBAN,
			"account_id", f.AccountID,
			"created", f.Created,
			"total", f.Total,
		)
	}
	return summary, nil
}

// resolveAccount finds the account owning the statement's IBAN, creating it
// with the captured name when unseen.
func resolveAccount(tx *gorm.DB, st *statement.Statement) (*models.Account, error) {
	iban := st.IBAN
	name := st.AccountName
	if name == "" {
		name = iban
	}

	candidate := &models.Account{IBAN: &iban, Name: name, Type: models.AccountTypeChecking}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "iban"}},
		DoNothing: true,
	}).Create(candidate).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var account models.Account
	if err := tx.Where("iban = ?", iban).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// insertRows stores rows that do not collide with an existing natural key and
// returns how many were new.
func insertRows(tx *gorm.DB, accountID string, rows []statement.Row) (int, error) {
	created := 0
	for _, row := range rows {
		t := &models.Transaction{
			AccountID:       accountID,
			BookingDate:     row.BookingDate,
			ValueDate:       row.ValueDate,
			Creditor:        row.Creditor,
			Amount:          row.Amount,
			Currency:        row.Currency,
			TransactionType: row.TransactionType,
			Purpose:         row.Purpose,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(t)
		if result.Error != nil {
			return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 1 {
			created++
		}
	}
	return created, nil
}
