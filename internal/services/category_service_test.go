package services

import (
	"testing"
	"time"

	"finbook/internal/testutil"
)

func strPtr(s string) *string { return &s }

func TestCreateCategory(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		cat, err := svc.CreateCategory("Groceries", strPtr("#ff0000"), nil)
		testutil.AssertNoError(t, err)

		if cat.ID == "" {
			t.Fatal("expected category ID")
		}
		if cat.Name != "Groceries" {
			t.Errorf("expected name Groceries, got %s", cat.Name)
		}
		if cat.ResolvedColor != "#ff0000" {
			t.Errorf("expected resolved color #ff0000, got %s", cat.ResolvedColor)
		}
		if cat.Level != 0 {
			t.Errorf("expected level 0, got %d", cat.Level)
		}
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("Food", nil, nil)
		testutil.AssertNoError(t, err)

		_, err = svc.CreateCategory("Food", nil, nil)
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("with_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		parent, err := svc.CreateCategory("Food", strPtr("#102030"), nil)
		testutil.AssertNoError(t, err)

		child, err := svc.CreateCategory("Snacks", nil, &parent.ID)
		testutil.AssertNoError(t, err)

		if child.ParentID == nil || *child.ParentID != parent.ID {
			t.Errorf("expected parent ID %s, got %v", parent.ID, child.ParentID)
		}
		if child.Color != nil {
			t.Errorf("expected no stored color, got %v", *child.Color)
		}
		if child.ResolvedColor != "#112334" {
			t.Errorf("expected lightened color #112334, got %s", child.ResolvedColor)
		}
		if child.Level != 1 {
			t.Errorf("expected level 1, got %d", child.Level)
		}
	})

	t.Run("invalid_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("Orphan", nil, strPtr("00000000-0000-7000-8000-000000000000"))
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("empty_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("", nil, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestListCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewCategoryService(db)

	for _, name := range []string{"Travel", "Food", "Rent"} {
		_, err := svc.CreateCategory(name, nil, nil)
		testutil.AssertNoError(t, err)
	}

	categories, err := svc.ListCategories()
	testutil.AssertNoError(t, err)

	want := []string{"Food", "Rent", "Travel"}
	if len(categories) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(categories))
	}
	for i, name := range want {
		if categories[i].Name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, categories[i].Name)
		}
		if categories[i].ResolvedColor != "#fafafa" {
			t.Errorf("expected fallback color, got %s", categories[i].ResolvedColor)
		}
	}
}

func TestUpdateCategory(t *testing.T) {
	t.Run("rename_and_recolor", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		cat, err := svc.CreateCategory("Food", strPtr("#000000"), nil)
		testutil.AssertNoError(t, err)

		updated, err := svc.UpdateCategory(cat.ID, "Groceries", nil, nil)
		testutil.AssertNoError(t, err)
		if updated.Name != "Groceries" || updated.Color != nil {
			t.Errorf("unexpected update result: name=%s color=%v", updated.Name, updated.Color)
		}
	})

	t.Run("self_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		cat, err := svc.CreateCategory("Food", nil, nil)
		testutil.AssertNoError(t, err)

		_, err = svc.UpdateCategory(cat.ID, "Food", nil, &cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_CYCLE")
	})

	t.Run("descendant_parent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		root, err := svc.CreateCategory("Food", nil, nil)
		testutil.AssertNoError(t, err)
		child, err := svc.CreateCategory("Snacks", nil, &root.ID)
		testutil.AssertNoError(t, err)
		grandchild, err := svc.CreateCategory("Chips", nil, &child.ID)
		testutil.AssertNoError(t, err)

		_, err = svc.UpdateCategory(root.ID, "Food", nil, &grandchild.ID)
		testutil.AssertAppError(t, err, "CATEGORY_CYCLE")
	})

	t.Run("duplicate_name", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		_, err := svc.CreateCategory("Food", nil, nil)
		testutil.AssertNoError(t, err)
		other, err := svc.CreateCategory("Rent", nil, nil)
		testutil.AssertNoError(t, err)

		_, err = svc.UpdateCategory(other.ID, "Food", nil, nil)
		testutil.AssertAppError(t, err, "DUPLICATE_CATEGORY")
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		_, err := svc.UpdateCategory("missing", "Food", nil, nil)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})
}

func TestDeleteCategory(t *testing.T) {
	t.Run("unused", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		cat := testutil.CreateTestCategory(t, db)
		testutil.AssertNoError(t, svc.DeleteCategory(cat.ID))

		_, err := svc.GetCategoryByID(cat.ID)
		testutil.AssertAppError(t, err, "CATEGORY_NOT_FOUND")
	})

	t.Run("has_children", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		parent := testutil.CreateTestCategory(t, db)
		testutil.CreateTestCategoryNamed(t, db, "Child", &parent.ID, nil)

		testutil.AssertAppError(t, svc.DeleteCategory(parent.ID), "CATEGORY_HAS_CHILDREN")
	})

	t.Run("referenced_by_record", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		account := testutil.CreateTestAccount(t, db)
		cat := testutil.CreateTestCategory(t, db)
		testutil.CreateTestRecord(t, db, account.ID, cat.ID, -5, testutil.Date(2024, time.May, 1))

		testutil.AssertAppError(t, svc.DeleteCategory(cat.ID), "CATEGORY_IN_USE")
	})

	t.Run("referenced_by_contract", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewCategoryService(db)

		account := testutil.CreateTestAccount(t, db)
		cat := testutil.CreateTestCategory(t, db)
		testutil.CreateTestContract(t, db, account.ID, cat.ID)

		testutil.AssertAppError(t, svc.DeleteCategory(cat.ID), "CATEGORY_IN_USE")
	})
}

func TestCategoryTreeSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewCategoryService(db)

	root := testutil.CreateTestCategoryNamed(t, db, "Home", nil, nil)
	a := testutil.CreateTestCategoryNamed(t, db, "Energy", &root.ID, nil)
	b := testutil.CreateTestCategoryNamed(t, db, "Rent", &root.ID, nil)

	tree, err := svc.Tree()
	testutil.AssertNoError(t, err)

	got := tree.Subtree(root.ID)
	want := []string{root.ID, a.ID, b.ID}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	if tree.Root(b.ID) != root.ID {
		t.Errorf("expected root %s, got %s", root.ID, tree.Root(b.ID))
	}
}
