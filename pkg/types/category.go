package types

import "sort"

// NoParentID is the parent id of root categories.
const NoParentID int64 = 0

// CategoryConfig holds presentation settings for a category
type CategoryConfig struct {
	Order int
}

// Category is a node of the chat-bot dashboard tree
type Category struct {
	ID        int64
	Title     string
	Language  Language
	ParentID  int64
	Photo     string
	Responses []int64
	Config    CategoryConfig
}

// Equal reports whether two categories denote the same node. Only the id and
// the parent id take part; title and config differences are ignored.
func (c Category) Equal(other Category) bool {
	return c.ID == other.ID && c.ParentID == other.ParentID
}

// IsRoot reports whether the category sits at the top of the tree.
func (c Category) IsRoot() bool {
	return c.ParentID == NoParentID
}

type categoryKey struct {
	id       int64
	parentID int64
}

func (c Category) key() categoryKey {
	return categoryKey{id: c.ID, parentID: c.ParentID}
}

// SortCategories orders categories by Config.Order, keeping the input order
// for equal values.
func SortCategories(categories []Category) {
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Config.Order < categories[j].Config.Order
	})
}

// MergeCategories appends the categories of page that are not already present
// in existing and returns the sorted union. Entries of existing win.
func MergeCategories(existing, page []Category) []Category {
	merged := make([]Category, 0, len(existing)+len(page))
	seen := make(map[categoryKey]struct{}, len(existing)+len(page))

	for _, list := range [][]Category{existing, page} {
		for _, category := range list {
			if _, ok := seen[category.key()]; ok {
				continue
			}
			seen[category.key()] = struct{}{}
			merged = append(merged, category)
		}
	}

	SortCategories(merged)
	return merged
}

// Children returns the categories whose parent is parentID.
func Children(categories []Category, parentID int64) []Category {
	var children []Category
	for _, category := range categories {
		if category.ParentID == parentID {
			children = append(children, category)
		}
	}
	return children
}
