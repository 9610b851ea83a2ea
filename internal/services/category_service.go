package services

import (
	"errors"

	"gorm.io/gorm"

	"finbook/internal/categorytree"
	apperrors "finbook/internal/errors"
	"finbook/internal/models"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(name string, color, parentID *string) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	if err := s.checkNameAvailable(name, ""); err != nil {
		return nil, err
	}

	if parentID != nil {
		if _, err := s.GetCategoryByID(*parentID); err != nil {
			if errors.Is(err, apperrors.ErrCategoryNotFound) {
				return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
			}
			return nil, err
		}
	}

	category := &models.Category{
		Name:     name,
		Color:    emptyToNil(color),
		ParentID: parentID,
	}
	if err := s.db.Create(category).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetCategoryByID(category.ID)
}

// ListCategories returns every category ordered by name, each with its
// resolved color and level.
func (s *categoryService) ListCategories() ([]models.Category, error) {
	categories, tree, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range categories {
		decorate(&categories[i], tree)
	}
	return categories, nil
}

// GetCategoryByID retrieves a category with its derived fields.
func (s *categoryService) GetCategoryByID(id string) (*models.Category, error) {
	categories, tree, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID == id {
			decorate(&categories[i], tree)
			return &categories[i], nil
		}
	}
	return nil, apperrors.ErrCategoryNotFound
}

// UpdateCategory replaces name, color and parent. A parent that is the
// category itself or one of its descendants is rejected.
func (s *categoryService) UpdateCategory(id string, name string, color, parentID *string) (*models.Category, error) {
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}

	_, tree, err := s.load()
	if err != nil {
		return nil, err
	}
	if !tree.Has(id) {
		return nil, apperrors.ErrCategoryNotFound
	}

	if parentID != nil {
		if !tree.Has(*parentID) {
			return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
		}
		if tree.WouldCycle(id, *parentID) {
			return nil, apperrors.ErrCategoryCycle
		}
	}

	if err := s.checkNameAvailable(name, id); err != nil {
		return nil, err
	}

	err = s.db.Model(&models.Category{}).Where("id = ?", id).
		Updates(map[string]any{
			"name":      name,
			"color":     emptyToNil(color),
			"parent_id": parentID,
		}).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetCategoryByID(id)
}

// DeleteCategory removes a category that has no children and is not
// referenced by any record or contract.
func (s *categoryService) DeleteCategory(id string) error {
	if _, err := s.GetCategoryByID(id); err != nil {
		return err
	}

	var children int64
	if err := s.db.Model(&models.Category{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if children > 0 {
		return apperrors.ErrCategoryHasChildren
	}

	for _, model := range []any{&models.Record{}, &models.Contract{}} {
		var count int64
		if err := s.db.Model(model).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count > 0 {
			return apperrors.ErrCategoryInUse
		}
	}

	if err := s.db.Delete(&models.Category{}, "id = ?", id).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// Tree returns a snapshot of the category forest.
func (s *categoryService) Tree() (*categorytree.Tree, error) {
	_, tree, err := s.load()
	return tree, err
}

func (s *categoryService) load() ([]models.Category, *categorytree.Tree, error) {
	return loadCategoryTree(s.db)
}

func (s *categoryService) checkNameAvailable(name, exceptID string) error {
	q := s.db.Model(&models.Category{}).Where("name = ?", name)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return apperrors.ErrDuplicateCategory
	}
	return nil
}

// loadCategoryTree reads all categories in name order and builds the tree.
func loadCategoryTree(db *gorm.DB) ([]models.Category, *categorytree.Tree, error) {
	var categories []models.Category
	if err := db.Order("name").Find(&categories).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	nodes := make([]categorytree.Node, len(categories))
	for i, c := range categories {
		nodes[i] = categorytree.Node{ID: c.ID, Name: c.Name, ParentID: c.ParentID}
		if c.Color != nil {
			nodes[i].Color = *c.Color
		}
	}
	return categories, categorytree.New(nodes), nil
}

func decorate(c *models.Category, tree *categorytree.Tree) {
	c.ResolvedColor = tree.ResolvedColor(c.ID)
	c.Level = tree.Depth(c.ID)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
