// Package seed loads the initial category forest from a YAML file.
package seed

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"finbook/internal/logger"
	"finbook/internal/models"
)

// Category is one node of the seed file.
type Category struct {
	Name     string     `yaml:"name"`
	Color    string     `yaml:"color,omitempty"`
	Children []Category `yaml:"children,omitempty"`
}

// File is the top level of a seed file.
type File struct {
	Categories []Category `yaml:"categories"`
}

// Parse decodes a seed document and rejects nodes without a name.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding category seed: %w", err)
	}
	if err := validate(f.Categories, map[string]bool{}); err != nil {
		return nil, err
	}
	return &f, nil
}

func validate(nodes []Category, seen map[string]bool) error {
	for _, n := range nodes {
		if n.Name == "" {
			return errors.New("category seed: node without name")
		}
		if seen[n.Name] {
			return fmt.Errorf("category seed: duplicate name %q", n.Name)
		}
		seen[n.Name] = true
		if err := validate(n.Children, seen); err != nil {
			return err
		}
	}
	return nil
}

// Load reads and parses the seed file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category seed: %w", err)
	}
	return Parse(data)
}

// Apply creates every category of f that does not exist yet, matched by
// name. Existing categories are left as they are. It returns the number of
// categories created.
func Apply(db *gorm.DB, f *File) (int, error) {
	created := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = applyNodes(tx, f.Categories, nil)
		return err
	})
	if err != nil {
		return 0, err
	}
	logger.Get().Infow("category seed applied", "created", created)
	return created, nil
}

func applyNodes(tx *gorm.DB, nodes []Category, parentID *string) (int, error) {
	created := 0
	for _, n := range nodes {
		var category models.Category
		err := tx.Where("name = ?", n.Name).First(&category).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			category = models.Category{Name: n.Name, ParentID: parentID}
			if n.Color != "" {
				color := n.Color
				category.Color = &color
			}
			if err := tx.Create(&category).Error; err != nil {
				return 0, fmt.Errorf("creating category %q: %w", n.Name, err)
			}
			created++
		case err != nil:
			return 0, fmt.Errorf("looking up category %q: %w", n.Name, err)
		}

		id := category.ID
		sub, err := applyNodes(tx, n.Children, &id)
		if err != nil {
			return 0, err
		}
		created += sub
	}
	return created, nil
}
