package services

import (
	"net/url"
	"time"

	"finbook/internal/categorytree"
	"finbook/internal/models"
	"finbook/internal/pagination"
	"finbook/internal/query"
	"finbook/internal/recurrence"
)

// Listing is the result of a list query. Paged is set when the caller asked
// for a page; otherwise Items holds every match.
type Listing[T any] struct {
	Items []T
	Paged *pagination.PageResponse[T]
}

// AccountServicer defines the contract for account-related business logic.
type AccountServicer interface {
	CreateAccount(name string, iban *string, accountType models.AccountType) (*models.Account, error)
	ListAccounts() ([]models.Account, error)
	GetAccountByID(id string) (*models.Account, error)
	UpdateAccount(id string, name string, iban *string, accountType models.AccountType) (*models.Account, error)
	DeleteAccount(id string) error
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(name string, color, parentID *string) (*models.Category, error)
	ListCategories() ([]models.Category, error)
	GetCategoryByID(id string) (*models.Category, error)
	UpdateCategory(id string, name string, color, parentID *string) (*models.Category, error)
	DeleteCategory(id string) error
	Tree() (*categorytree.Tree, error)
}

// ContractInput carries the writable fields of a contract.
type ContractInput struct {
	Name              string
	IsActive          bool
	DateStart         time.Time
	CancelationPeriod *int
	MinimumDuration   *int
	RenewalDuration   *int
	AccountID         string
	Amount            float64
	PaymentDate       *time.Time
	PaymentCycle      recurrence.Cycle
	CategoryID        string
}

// ContractServicer defines the contract for contract-related business logic.
type ContractServicer interface {
	CreateContract(in ContractInput) (*models.Contract, error)
	ListContracts(isActive *bool) ([]models.Contract, error)
	GetContractByID(id string) (*models.Contract, error)
	UpdateContract(id string, in ContractInput) (*models.Contract, error)
	DeleteContract(id string) error
}

// RecordInput carries the writable fields of a record. A nil TransactionIDs
// leaves links untouched on update.
type RecordInput struct {
	AccountID        string
	CategoryID       string
	ContractID       *string
	CounterBookingID *string
	Subject          string
	Date             time.Time
	Amount           float64
	TransactionIDs   []string
}

// SubjectSuggestion is one distinct (subject, category, contract) triple used
// for autocompletion.
type SubjectSuggestion struct {
	Subject    string  `json:"subject"`
	CategoryID string  `json:"category_id"`
	ContractID *string `json:"contract_id"`
}

// RecordServicer defines the contract for record-related business logic.
type RecordServicer interface {
	CreateRecords(in []RecordInput) ([]models.Record, error)
	GetRecordByID(id string) (*models.Record, error)
	UpdateRecord(id string, in RecordInput) (*models.Record, error)
	DeleteRecord(id string) error
	ListRecords(params url.Values) (*Listing[models.Record], error)
	Subjects(prefix string) ([]SubjectSuggestion, error)
	AggregateRecords(params url.Values) ([]query.Bucket, error)
}

// DuplicateGroup is a set of transactions sharing value date, purpose and
// amount.
type DuplicateGroup struct {
	ValueDate time.Time `json:"value_date"`
	Purpose   string    `json:"purpose"`
	Amount    string    `json:"amount"`
	Count     int64     `json:"count"`
}

// Suggestion is a record that may explain a transaction, best match first.
type Suggestion struct {
	Record   models.Record `json:"record"`
	Distance int           `json:"distance"`
}

// TransactionServicer defines the contract for the transaction linker.
type TransactionServicer interface {
	ListTransactions(params url.Values) (*Listing[models.Transaction], error)
	GetTransactionByID(id string) (*models.Transaction, error)
	DeleteTransaction(id string) error
	Hide(id string) (*models.Transaction, error)
	Show(id string) (*models.Transaction, error)
	Bookmark(id string) (*models.Transaction, error)
	Unbookmark(id string) (*models.Transaction, error)
	LinkRecord(id, recordID string) (*models.Transaction, error)
	UnlinkRecord(id, recordID string) (*models.Transaction, error)
	SetRecords(id string, recordIDs []string) (*models.Transaction, error)
	PairCounterBooking(idA, idB string) error
	FindDuplicates(minCount int) ([]DuplicateGroup, error)
	SuggestRecords(id string, limit int) ([]Suggestion, error)
}

// FileSummary reports the outcome of importing one statement file.
type FileSummary struct {
	IBAN      string `json:"iban"`
	AccountID string `json:"account_id"`
	Created   int    `json:"created"`
	Total     int    `json:"total"`
}

// ImportSummary reports the outcome of one import request.
type ImportSummary struct {
	Files   []FileSummary `json:"files"`
	Created int           `json:"created"`
	Total   int           `json:"total"`
}

// ImportServicer defines the contract for the statement importer.
type ImportServicer interface {
	ImportStatements(files [][]byte) (*ImportSummary, error)
}

// AuditServicer records reconciliation operations for later review.
type AuditServicer interface {
	Log(principal, action, resourceType, resourceID, ipAddress string, changes map[string]any)
	List(filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error)
}
