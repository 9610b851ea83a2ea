package models

// TransactionRecord is one row of the join table between transactions and
// records. Gorm creates the table from the many2many tags; this type lets the
// linker write single links with ON CONFLICT handling.
type TransactionRecord struct {
	TransactionID string `gorm:"type:uuid;primaryKey"`
	RecordID      string `gorm:"type:uuid;primaryKey"`
}

// TableName overrides the default table name.
func (TransactionRecord) TableName() string {
	return "transaction_records"
}
