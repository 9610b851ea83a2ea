package services

import (
	"errors"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "finbook/internal/errors"
	"finbook/internal/logger"
	"finbook/internal/models"
	"finbook/internal/pagination"
	"finbook/internal/query"
)

const (
	recordCountExpr = "(SELECT COUNT(*) FROM transaction_records WHERE transaction_records.transaction_id = transactions.id)"
	accountIBANExpr = "(SELECT accounts.iban FROM accounts WHERE accounts.id = transactions.account_id)"

	// SuggestionWindow is how far a record's date may be from the booking
	// date to be suggested for a transaction.
	SuggestionWindow = 7 * 24 * time.Hour

	DefaultSuggestionLimit  = 10
	DefaultDuplicateMinimum = 2
)

var transactionSchema = &query.Schema{
	Fields: map[string]query.Field{
		"id":               {Column: "transactions.id", Kind: query.KindID, Comparators: query.ComparatorsID},
		"account":          {Column: "transactions.account_id", Kind: query.KindID, Comparators: query.ComparatorsID},
		"account_iban":     {Column: accountIBANExpr, Kind: query.KindString, Comparators: query.ComparatorsText, Default: query.IStartsWith},
		"booking_date":     {Column: "transactions.booking_date", Kind: query.KindDate, Comparators: append([]query.Comparator{query.IsNull}, query.ComparatorsRange...)},
		"value_date":       {Column: "transactions.value_date", Kind: query.KindDate, Comparators: query.ComparatorsRange},
		"creditor":         {Column: "transactions.creditor", Kind: query.KindString, Comparators: query.ComparatorsText},
		"transaction_type": {Column: "transactions.transaction_type", Kind: query.KindString, Comparators: query.ComparatorsText},
		"purpose":          {Column: "transactions.purpose", Kind: query.KindString, Comparators: query.ComparatorsText},
		"amount":           {Column: "transactions.amount", Kind: query.KindDecimal, Comparators: query.ComparatorsRange},
		"currency":         {Column: "transactions.currency", Kind: query.KindString, Comparators: []query.Comparator{query.Exact, query.In}},
		"is_highlighted":   {Column: "transactions.is_highlighted", Kind: query.KindBool, Comparators: query.ComparatorsBool},
		"is_ignored":       {Column: "transactions.is_ignored", Kind: query.KindBool, Comparators: query.ComparatorsBool},
		"is_duplicate":     {Column: "(transactions.is_counter_to_id IS NOT NULL)", Kind: query.KindBool, Comparators: query.ComparatorsBool},
		"record_count":     {Column: recordCountExpr, Kind: query.KindNumber, Comparators: query.ComparatorsRange},
	},
	Search: []string{"transactions.creditor", "transactions.transaction_type", "transactions.purpose"},
	Sortable: map[string]string{
		"id":           "transactions.id",
		"booking_date": "transactions.booking_date",
		"value_date":   "transactions.value_date",
		"amount":       "transactions.amount",
		"creditor":     "transactions.creditor",
		"record_count": recordCountExpr,
	},
	DefaultOrder: []string{"booking_date"},
	TieBreaker:   "transactions.id",
}

// transactionService links imported transactions to records and to each
// other.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

func preloadRecords(db *gorm.DB) *gorm.DB {
	return db.Preload("Records", func(db *gorm.DB) *gorm.DB {
		return withTransactionCount(db).Order("records.date DESC").Order("records.id")
	})
}

// ListTransactions filters, searches and sorts transactions from URL
// parameters, paginated when "page" is present.
func (s *transactionService) ListTransactions(params url.Values) (*Listing[models.Transaction], error) {
	spec, err := query.Parse(transactionSchema, params)
	if err != nil {
		return nil, err
	}

	base := query.Apply(s.db.Model(&models.Transaction{}), transactionSchema, spec).Session(&gorm.Session{})

	var totalItems int64
	if spec.Page != nil {
		if err := base.Count(&totalItems).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	q := query.Order(preloadRecords(base), spec)
	if spec.Page != nil {
		q = q.Scopes(pagination.Paginate(*spec.Page))
	}

	var transactions []models.Transaction
	if err := q.Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if spec.Page != nil {
		page := pagination.NewPageResponse(transactions, spec.Page.Page, spec.Page.PageSize, totalItems)
		return &Listing[models.Transaction]{Paged: &page}, nil
	}
	if transactions == nil {
		transactions = []models.Transaction{}
	}
	return &Listing[models.Transaction]{Items: transactions}, nil
}

// GetTransactionByID retrieves a transaction with its linked records.
func (s *transactionService) GetTransactionByID(id string) (*models.Transaction, error) {
	return getTransaction(s.db, id)
}

func getTransaction(db *gorm.DB, id string) (*models.Transaction, error) {
	if !validIDs(id) {
		return nil, apperrors.ErrTransactionNotFound
	}
	var t models.Transaction
	if err := preloadRecords(db).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &t, nil
}

// DeleteTransaction removes a transaction, its record links and any
// counter-booking reference to it.
func (s *transactionService) DeleteTransaction(id string) error {
	if _, err := s.GetTransactionByID(id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("transaction_id = ?", id).Delete(&models.TransactionRecord{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Transaction{}).Where("is_counter_to_id = ?", id).
			Update("is_counter_to_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Transaction{}, "id = ?", id).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// Hide marks a transaction as ignored. Transactions already explained by
// records cannot be hidden.
func (s *transactionService) Hide(id string) (*models.Transaction, error) {
	t, err := s.GetTransactionByID(id)
	if err != nil {
		return nil, err
	}
	if t.IsImported {
		return nil, apperrors.ErrAlreadyImported
	}
	return s.setFlag(id, "is_ignored", true)
}

// Show reverts Hide.
func (s *transactionService) Show(id string) (*models.Transaction, error) {
	t, err := s.GetTransactionByID(id)
	if err != nil {
		return nil, err
	}
	if !t.IsIgnored {
		return nil, apperrors.ErrNotIgnored
	}
	return s.setFlag(id, "is_ignored", false)
}

// Bookmark highlights a transaction.
func (s *transactionService) Bookmark(id string) (*models.Transaction, error) {
	if _, err := s.GetTransactionByID(id); err != nil {
		return nil, err
	}
	return s.setFlag(id, "is_highlighted", true)
}

// Unbookmark removes the highlight.
func (s *transactionService) Unbookmark(id string) (*models.Transaction, error) {
	if _, err := s.GetTransactionByID(id); err != nil {
		return nil, err
	}
	return s.setFlag(id, "is_highlighted", false)
}

func (s *transactionService) setFlag(id, column string, value bool) (*models.Transaction, error) {
	if err := s.db.Model(&models.Transaction{}).Where("id = ?", id).Update(column, value).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetTransactionByID(id)
}

// LinkRecord associates a record with a transaction. Linking twice is a no-op.
func (s *transactionService) LinkRecord(id, recordID string) (*models.Transaction, error) {
	if _, err := s.GetTransactionByID(id); err != nil {
		return nil, err
	}
	if err := exists(s.db, &models.Record{}, recordID, apperrors.ErrRecordNotFound); err != nil {
		return nil, err
	}

	link := models.TransactionRecord{TransactionID: id, RecordID: recordID}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.GetTransactionByID(id)
}

// UnlinkRecord removes the association between a record and a transaction.
func (s *transactionService) UnlinkRecord(id, recordID string) (*models.Transaction, error) {
	if _, err := s.GetTransactionByID(id); err != nil {
		return nil, err
	}
	if err := exists(s.db, &models.Record{}, recordID, apperrors.ErrRecordNotFound); err != nil {
		return nil, err
	}

	result := s.db.Where("transaction_id = ? AND record_id = ?", id, recordID).Delete(&models.TransactionRecord{})
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotLinked
	}
	return s.GetTransactionByID(id)
}

// SetRecords replaces the linked records of a transaction in one database
// transaction. Unknown record ids fail the whole call.
func (s *transactionService) SetRecords(id string, recordIDs []string) (*models.Transaction, error) {
	recordIDs = uniqueIDs(recordIDs)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Transaction{}, id, apperrors.ErrTransactionNotFound); err != nil {
			return err
		}
		if len(recordIDs) > 0 {
			if !validIDs(recordIDs...) {
				return apperrors.ErrRecordNotFound
			}
			var found int64
			if err := tx.Model(&models.Record{}).Where("id IN ?", recordIDs).Count(&found).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if found != int64(len(recordIDs)) {
				return apperrors.ErrRecordNotFound
			}
		}

		if err := tx.Where("transaction_id = ?", id).Delete(&models.TransactionRecord{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(recordIDs) == 0 {
			return nil
		}
		links := make([]models.TransactionRecord, len(recordIDs))
		for i, rid := range recordIDs {
			links[i] = models.TransactionRecord{TransactionID: id, RecordID: rid}
		}
		if err := tx.Create(&links).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetTransactionByID(id)
}

// PairCounterBooking marks two transactions of the same account as
// offsetting each other. Earlier pairings of either side are dissolved so the
// relation stays symmetric.
func (s *transactionService) PairCounterBooking(idA, idB string) error {
	if idA == idB {
		return apperrors.WithMessage(apperrors.ErrValidation, "a transaction cannot be its own counter booking")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		a, err := getTransaction(tx, idA)
		if err != nil {
			return err
		}
		b, err := getTransaction(tx, idB)
		if err != nil {
			return err
		}
		if a.AccountID != b.AccountID {
			return apperrors.WithMessage(apperrors.ErrValidation, "counter bookings must belong to the same account")
		}

		if err := tx.Model(&models.Transaction{}).
			Where("is_counter_to_id IN ? OR id IN ?", []string{idA, idB}, []string{idA, idB}).
			Update("is_counter_to_id", nil).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Transaction{}).Where("id = ?", idA).Update("is_counter_to_id", idB).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(&models.Transaction{}).Where("id = ?", idB).Update("is_counter_to_id", idA).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		logger.Get().Infow("counter booking paired", "transaction_a", idA, "transaction_b", idB, "account_id", a.AccountID)
		return nil
	})
}

// FindDuplicates returns groups of transactions sharing value date, purpose
// and amount that occur at least minCount times.
func (s *transactionService) FindDuplicates(minCount int) ([]DuplicateGroup, error) {
	if minCount < DefaultDuplicateMinimum {
		minCount = DefaultDuplicateMinimum
	}

	var rows []struct {
		ValueDate time.Time
		Purpose   string
		Amount    decimal.Decimal
		Count     int64
	}
	err := s.db.Model(&models.Transaction{}).
		Select("value_date, purpose, amount, COUNT(*) AS count").
		Group("value_date, purpose, amount").
		Having("COUNT(*) >= ?", minCount).
		Order("value_date").Order("purpose").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	groups := make([]DuplicateGroup, len(rows))
	for i, r := range rows {
		groups[i] = DuplicateGroup{
			ValueDate: r.ValueDate,
			Purpose:   r.Purpose,
			Amount:    r.Amount.StringFixed(2),
			Count:     r.Count,
		}
	}
	return groups, nil
}

// SuggestRecords returns unlinked records that may explain a transaction:
// same absolute amount, dated within SuggestionWindow of the booking date,
// ranked by edit distance between subject and creditor or purpose.
func (s *transactionService) SuggestRecords(id string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	t, err := s.GetTransactionByID(id)
	if err != nil {
		return nil, err
	}

	amount := t.Amount.Abs().InexactFloat64()
	linked := s.db.Model(&models.TransactionRecord{}).Select("record_id").Where("transaction_id = ?", id)

	var candidates []models.Record
	err = withTransactionCount(s.db.Model(&models.Record{})).
		Where("records.date BETWEEN ? AND ?", t.BookingDate.Add(-SuggestionWindow), t.BookingDate.Add(SuggestionWindow)).
		Where("ABS(ABS(records.amount) - ?) < 0.005", amount).
		Where("records.id NOT IN (?)", linked).
		Find(&candidates).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	creditor := strings.ToLower(t.Creditor)
	purpose := strings.ToLower(t.Purpose)
	suggestions := make([]Suggestion, len(candidates))
	for i, r := range candidates {
		subject := strings.ToLower(r.Subject)
		d := levenshtein.ComputeDistance(subject, creditor)
		if p := levenshtein.ComputeDistance(subject, purpose); p < d {
			d = p
		}
		suggestions[i] = Suggestion{Record: r, Distance: d}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Distance != suggestions[j].Distance {
			return suggestions[i].Distance < suggestions[j].Distance
		}
		di := absDuration(suggestions[i].Record.Date.Sub(t.BookingDate))
		dj := absDuration(suggestions[j].Record.Date.Sub(t.BookingDate))
		if di != dj {
			return di < dj
		}
		return suggestions[i].Record.ID < suggestions[j].Record.ID
	})

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
