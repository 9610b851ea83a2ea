package models

// All returns every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Account{},
		&Category{},
		&Contract{},
		&Record{},
		&Transaction{},
		&AuditLog{},
	}
}
