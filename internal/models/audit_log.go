package models

// AuditLog records reconciliation operations on bookkeeping data.
// Listing filters on principal, action and the resource pair, newest first.
type AuditLog struct {
	Base
	Principal    string `gorm:"not null;index" json:"principal"`
	Action       string `gorm:"not null;index" json:"action"`
	ResourceType string `gorm:"not null;index:idx_audit_logs_resource" json:"resource_type"`
	ResourceID   string `gorm:"index:idx_audit_logs_resource" json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
