package services

import (
	"errors"
	"net/url"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finbook/internal/categorytree"
	apperrors "finbook/internal/errors"
	"finbook/internal/models"
	"finbook/internal/pagination"
	"finbook/internal/query"
	"finbook/internal/uuid"
)

const transactionCountExpr = "(SELECT COUNT(*) FROM transaction_records WHERE transaction_records.record_id = records.id)"

// Related rows sort by name, not by their ids.
const (
	categoryNameExpr = "(SELECT categories.name FROM categories WHERE categories.id = records.category_id)"
	contractNameExpr = "(SELECT contracts.name FROM contracts WHERE contracts.id = records.contract_id)"
)

// newRecordSchema is the closed table of record filters, sort keys and
// aggregation groups. Category filters are widened to whole subtrees.
func newRecordSchema(dialect string, expandCategories query.ExpandFunc) *query.Schema {
	return &query.Schema{
		Fields: map[string]query.Field{
			"id":                {Column: "records.id", Kind: query.KindID, Comparators: query.ComparatorsID},
			"account":           {Column: "records.account_id", Kind: query.KindID, Comparators: query.ComparatorsID},
			"category":          {Column: "records.category_id", Kind: query.KindID, Comparators: query.ComparatorsID, Expand: expandCategories},
			"contract":          {Column: "records.contract_id", Kind: query.KindID, Comparators: query.ComparatorsNullable},
			"counter_booking":   {Column: "records.counter_booking_id", Kind: query.KindID, Comparators: query.ComparatorsNullable},
			"subject":           {Column: "records.subject", Kind: query.KindString, Comparators: query.ComparatorsText, Default: query.IContains},
			"date":              {Column: "records.date", Kind: query.KindDate, Comparators: query.ComparatorsRange},
			"date_start":        {Column: "records.date", Kind: query.KindDate, Comparators: []query.Comparator{query.GTE}, Default: query.GTE},
			"date_end":          {Column: "records.date", Kind: query.KindDate, Comparators: []query.Comparator{query.LTE}, Default: query.LTE},
			"date_created":      {Column: "records.created_at", Kind: query.KindDate, Comparators: query.ComparatorsRange},
			"amount":            {Column: "records.amount", Kind: query.KindNumber, Comparators: query.ComparatorsRange},
			"transaction_count": {Column: transactionCountExpr, Kind: query.KindNumber, Comparators: query.ComparatorsRange},
		},
		Search: []string{"records.subject"},
		Sortable: map[string]string{
			"id":                "records.id",
			"date":              "records.date",
			"date_created":      "records.created_at",
			"amount":            "records.amount",
			"subject":           "records.subject",
			"category":          categoryNameExpr,
			"account":           "records.account_id",
			"contract":          contractNameExpr,
			"transaction_count": transactionCountExpr,
		},
		DefaultOrder: []string{"-date", "category"},
		TieBreaker:   "records.id",
		Groups: map[string]string{
			"category": "records.category_id",
			"account":  "records.account_id",
			"contract": "records.contract_id",
			"subject":  "records.subject",
			"month":    query.MonthExpr(dialect, "records.date"),
		},
		AggregateColumn: "records.amount",
	}
}

// withTransactionCount selects every record column plus the number of
// linked transactions.
func withTransactionCount(db *gorm.DB) *gorm.DB {
	return db.Select("records.*, " + transactionCountExpr + " AS transaction_count")
}

// recordService handles record-related business logic.
type recordService struct {
	db     *gorm.DB
	schema *query.Schema
}

// NewRecordService creates a new RecordServicer.
func NewRecordService(db *gorm.DB) RecordServicer {
	s := &recordService{db: db}
	s.schema = newRecordSchema(db.Dialector.Name(), s.expandCategories)
	return s
}

// expandCategories replaces category ids with the ids of their subtrees.
// Unknown ids expand to nothing.
func (s *recordService) expandCategories(ids []string) ([]string, error) {
	_, tree, err := loadCategoryTree(s.db)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, id := range ids {
		for _, sub := range tree.Subtree(id) {
			if !seen[sub] {
				seen[sub] = true
				out = append(out, sub)
			}
		}
	}
	return out, nil
}

// CreateRecords creates one or more records atomically.
func (s *recordService) CreateRecords(in []RecordInput) ([]models.Record, error) {
	if len(in) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "at least one record is required")
	}

	ids := make([]string, 0, len(in))
	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, input := range in {
			if err := validateRecord(tx, "", input); err != nil {
				return err
			}
			record := &models.Record{}
			applyRecordInput(record, input)
			if err := tx.Create(record).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if input.TransactionIDs != nil {
				if err := replaceRecordTransactions(tx, record.ID, input.TransactionIDs); err != nil {
					return err
				}
			}
			ids = append(ids, record.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		r, err := s.GetRecordByID(id)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, nil
}

// GetRecordByID retrieves a record with its transaction count.
func (s *recordService) GetRecordByID(id string) (*models.Record, error) {
	if !validIDs(id) {
		return nil, apperrors.ErrRecordNotFound
	}
	var record models.Record
	err := withTransactionCount(s.db.Model(&models.Record{})).Where("records.id = ?", id).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &record, nil
}

// UpdateRecord replaces the writable fields of a record. Links to
// transactions are replaced only when TransactionIDs is non-nil.
func (s *recordService) UpdateRecord(id string, in RecordInput) (*models.Record, error) {
	if _, err := s.GetRecordByID(id); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := validateRecord(tx, id, in); err != nil {
			return err
		}
		record := &models.Record{}
		applyRecordInput(record, in)
		err := tx.Model(&models.Record{}).Where("id = ?", id).
			Select("account_id", "category_id", "contract_id", "counter_booking_id", "subject", "date", "amount").
			Updates(record).Error
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if in.TransactionIDs != nil {
			return replaceRecordTransactions(tx, id, in.TransactionIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetRecordByID(id)
}

// DeleteRecord deletes a record and its transaction links. A record that is
// the counter booking of another record is protected.
func (s *recordService) DeleteRecord(id string) error {
	if _, err := s.GetRecordByID(id); err != nil {
		return err
	}

	var count int64
	if err := s.db.Model(&models.Record{}).Where("counter_booking_id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrRecordInUse
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("record_id = ?", id).Delete(&models.TransactionRecord{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Record{}, "id = ?", id).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// ListRecords filters, searches and sorts records from URL parameters. The
// result is paginated only when the "page" parameter is present.
func (s *recordService) ListRecords(params url.Values) (*Listing[models.Record], error) {
	spec, err := query.Parse(s.schema, params)
	if err != nil {
		return nil, err
	}

	base := query.Apply(s.db.Model(&models.Record{}), s.schema, spec).Session(&gorm.Session{})

	var totalItems int64
	if spec.Page != nil {
		if err := base.Count(&totalItems).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	q := query.Order(withTransactionCount(base), spec)
	if spec.Page != nil {
		q = q.Scopes(pagination.Paginate(*spec.Page))
	}

	var records []models.Record
	if err := q.Find(&records).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if spec.Page != nil {
		page := pagination.NewPageResponse(records, spec.Page.Page, spec.Page.PageSize, totalItems)
		return &Listing[models.Record]{Paged: &page}, nil
	}
	if records == nil {
		records = []models.Record{}
	}
	return &Listing[models.Record]{Items: records}, nil
}

// Subjects returns the distinct (subject, category, contract) combinations
// whose subject starts with prefix.
func (s *recordService) Subjects(prefix string) ([]SubjectSuggestion, error) {
	q := s.db.Model(&models.Record{}).Distinct("subject", "category_id", "contract_id")
	if prefix != "" {
		q = q.Where(`subject LIKE ? ESCAPE '\'`, query.EscapeLike(prefix)+"%")
	}

	suggestions := []SubjectSuggestion{}
	if err := q.Order("subject").Order("category_id").Scan(&suggestions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return suggestions, nil
}

// AggregateRecords sums record amounts per group. Every parameter other than
// group and aggregate filters the records first. Category buckets are rolled
// up to their root category; id groups are labelled with names.
func (s *recordService) AggregateRecords(params url.Values) ([]query.Bucket, error) {
	agg, err := query.ParseAggregate(s.schema, params)
	if err != nil {
		return nil, err
	}
	spec, err := query.Parse(s.schema, params)
	if err != nil {
		return nil, err
	}

	db := query.Apply(s.db.Model(&models.Record{}), s.schema, spec)
	buckets, err := query.Run(db, s.schema, agg)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	buckets, err = s.relabel(agg.Group, buckets)
	if err != nil {
		return nil, err
	}
	query.SortBuckets(buckets)
	return buckets, nil
}

// relabel maps id labels to display names and merges buckets that end up
// with the same label.
func (s *recordService) relabel(group string, buckets []query.Bucket) ([]query.Bucket, error) {
	var label func(string) string

	switch group {
	case "category":
		_, tree, err := loadCategoryTree(s.db)
		if err != nil {
			return nil, err
		}
		label = func(id string) string { return categoryName(tree, tree.Root(id)) }
	case "account":
		names, err := namesByID(s.db, &models.Account{})
		if err != nil {
			return nil, err
		}
		label = func(id string) string { return names[id] }
	case "contract":
		names, err := namesByID(s.db, &models.Contract{})
		if err != nil {
			return nil, err
		}
		label = func(id string) string { return names[id] }
	default:
		return buckets, nil
	}

	index := make(map[string]int)
	merged := make([]query.Bucket, 0, len(buckets))
	for _, b := range buckets {
		name := b.Label
		if name != "" {
			if n := label(name); n != "" {
				name = n
			}
		}
		if i, ok := index[name]; ok {
			merged[i].Value += b.Value
			continue
		}
		index[name] = len(merged)
		merged = append(merged, query.Bucket{Label: name, Value: b.Value})
	}
	return merged, nil
}

func categoryName(tree *categorytree.Tree, id string) string {
	if n, ok := tree.Get(id); ok {
		return n.Name
	}
	return id
}

func namesByID(db *gorm.DB, model any) (map[string]string, error) {
	var rows []struct {
		ID   string
		Name string
	}
	if err := db.Model(model).Select("id", "name").Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	names := make(map[string]string, len(rows))
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names, nil
}

func validateRecord(tx *gorm.DB, id string, in RecordInput) error {
	if in.Subject == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "record subject is required")
	}
	if in.Date.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "record date is required")
	}
	if err := exists(tx, &models.Account{}, in.AccountID, apperrors.ErrAccountNotFound); err != nil {
		return err
	}
	if err := exists(tx, &models.Category{}, in.CategoryID, apperrors.ErrCategoryNotFound); err != nil {
		return err
	}
	if in.ContractID != nil {
		if err := exists(tx, &models.Contract{}, *in.ContractID, apperrors.ErrContractNotFound); err != nil {
			return err
		}
	}
	if in.CounterBookingID != nil {
		cb := *in.CounterBookingID
		if cb == id {
			return apperrors.WithMessage(apperrors.ErrValidation, "a record cannot be its own counter booking")
		}
		if err := exists(tx, &models.Record{}, cb, apperrors.WithMessage(apperrors.ErrRecordNotFound, "counter booking not found")); err != nil {
			return err
		}
		q := tx.Model(&models.Record{}).Where("counter_booking_id = ?", cb)
		if id != "" {
			q = q.Where("id <> ?", id)
		}
		var taken int64
		if err := q.Count(&taken).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if taken > 0 {
			return apperrors.WithMessage(apperrors.ErrValidation, "counter booking is already paired with another record")
		}
	}
	return nil
}

func applyRecordInput(r *models.Record, in RecordInput) {
	r.AccountID = in.AccountID
	r.CategoryID = in.CategoryID
	r.ContractID = in.ContractID
	r.CounterBookingID = in.CounterBookingID
	r.Subject = in.Subject
	r.Date = in.Date
	r.Amount = in.Amount
}

// replaceRecordTransactions sets the transactions linked to a record.
func replaceRecordTransactions(tx *gorm.DB, recordID string, transactionIDs []string) error {
	transactionIDs = uniqueIDs(transactionIDs)
	if len(transactionIDs) > 0 {
		if !validIDs(transactionIDs...) {
			return apperrors.ErrTransactionNotFound
		}
		var found int64
		if err := tx.Model(&models.Transaction{}).Where("id IN ?", transactionIDs).Count(&found).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if found != int64(len(transactionIDs)) {
			return apperrors.ErrTransactionNotFound
		}
	}

	if err := tx.Where("record_id = ?", recordID).Delete(&models.TransactionRecord{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(transactionIDs) == 0 {
		return nil
	}
	links := make([]models.TransactionRecord, len(transactionIDs))
	for i, tid := range transactionIDs {
		links[i] = models.TransactionRecord{TransactionID: tid, RecordID: recordID}
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// validIDs reports whether every id is a well-formed UUID. Malformed ids can
// never match a row and PostgreSQL rejects them in uuid comparisons.
func validIDs(ids ...string) bool {
	for _, id := range ids {
		if !uuid.IsValid(id) {
			return false
		}
	}
	return true
}
