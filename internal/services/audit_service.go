package services

import (
	"encoding/json"

	apperrors "finbook/internal/errors"
	"finbook/internal/logger"
	"finbook/internal/models"
	"finbook/internal/pagination"

	"gorm.io/gorm"
)

// AuditFilter narrows the audit trail. Empty fields match everything.
type AuditFilter struct {
	Principal    string `form:"principal"`
	Action       string `form:"action"`
	ResourceType string `form:"resource_type"`
	ResourceID   string `form:"resource_id"`
}

// auditService keeps the trail of reconciliation operations.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed so that a
// broken audit table never undoes a reconciliation step.
func (s *auditService) Log(principal, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	log := logger.With(
		"principal", principal,
		"action", action,
		"resource_type", resourceType,
		"resource_id", resourceID,
	)

	var changesJSON string
	if len(changes) > 0 {
		data, err := json.Marshal(changes)
		if err != nil {
			log.Errorw("failed to marshal audit log changes", "error", err)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		Principal:    principal,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      changesJSON,
	}
	if err := s.db.Create(entry).Error; err != nil {
		log.Errorw("failed to create audit log entry", "error", err)
	}
}

// List returns audit entries matching filter, newest first.
func (s *auditService) List(filter AuditFilter, page pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	page.Defaults()

	q := s.db.Model(&models.AuditLog{})
	for column, value := range map[string]string{
		"principal":     filter.Principal,
		"action":        filter.Action,
		"resource_type": filter.ResourceType,
		"resource_id":   filter.ResourceID,
	} {
		if value != "" {
			q = q.Where(column+" = ?", value)
		}
	}

	q = q.Session(&gorm.Session{})

	var totalItems int64
	if err := q.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var entries []models.AuditLog
	err := q.Order("created_at DESC").Order("id DESC").
		Scopes(pagination.Paginate(page)).
		Find(&entries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(entries, page.Page, page.PageSize, totalItems)
	return &resp, nil
}
