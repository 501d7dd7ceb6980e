// Package category defines marketplace categories. The API returns one flat
// list; parent/child relationships are inferred from ParentID when read.
package category

import (
	"cmp"
	"slices"
)

// Category is one flat category record.
type Category struct {
	ID        string `json:"id"`
	ParentID  string `json:"parentId,omitempty"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sortOrder"`
	Featured  bool   `json:"featured"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// Node is a category with its children, built at read time.
type Node struct {
	Category
	Children []*Node `json:"children,omitempty"`
}

// Sort orders categories by SortOrder, then by name.
func Sort(list []Category) {
	slices.SortStableFunc(list, func(a, b Category) int {
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// Children returns the direct children of parentID, sorted. An empty parentID
// returns the roots.
func Children(list []Category, parentID string) []Category {
	var out []Category
	for _, c := range list {
		if c.ParentID == parentID {
			out = append(out, c)
		}
	}
	Sort(out)
	return out
}

// Featured returns the featured categories, sorted.
func Featured(list []Category) []Category {
	var out []Category
	for _, c := range list {
		if c.Featured {
			out = append(out, c)
		}
	}
	Sort(out)
	return out
}

// Tree builds the parent/child forest. Categories whose parent is missing
// from list are promoted to roots so nothing is silently dropped.
func Tree(list []Category) []*Node {
	nodes := make(map[string]*Node, len(list))
	sorted := slices.Clone(list)
	Sort(sorted)
	for _, c := range sorted {
		nodes[c.ID] = &Node{Category: c}
	}

	var roots []*Node
	for _, c := range sorted {
		n := nodes[c.ID]
		parent, ok := nodes[c.ParentID]
		if c.ParentID == "" || !ok || parent == n {
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}
	return roots
}
