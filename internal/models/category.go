package models

// Category is a node in the spending category forest. Names are unique
// across the whole forest.
type Category struct {
	Base
	Name     string  `gorm:"not null;uniqueIndex" json:"name"`
	Color    *string `gorm:"size:7" json:"color"`
	ParentID *string `gorm:"type:uuid;index" json:"parent_id"`

	// Derived from the category tree, never stored.
	ResolvedColor string `gorm:"-" json:"resolved_color"`
	Level         int    `gorm:"-" json:"level"`

	// Relationships
	Parent *Category `gorm:"foreignKey:ParentID;constraint:OnDelete:RESTRICT" json:"-"`
}
