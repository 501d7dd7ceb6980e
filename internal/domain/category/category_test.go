package category

import "testing"

func sample() []Category {
	return []Category{
		{ID: "3", ParentID: "1", Name: "Bicis", SortOrder: 2},
		{ID: "1", Name: "Deportes", SortOrder: 1, Featured: true},
		{ID: "2", ParentID: "1", Name: "Pelotas", SortOrder: 1},
		{ID: "4", Name: "Hogar", SortOrder: 0, Featured: true},
		{ID: "5", ParentID: "99", Name: "Huerfana", SortOrder: 5},
	}
}

func TestChildren(t *testing.T) {
	kids := Children(sample(), "1")
	if len(kids) != 2 || kids[0].ID != "2" || kids[1].ID != "3" {
		t.Errorf("unexpected children %+v", kids)
	}
	roots := Children(sample(), "")
	if len(roots) != 2 || roots[0].ID != "4" {
		t.Errorf("unexpected roots %+v", roots)
	}
}

func TestFeatured(t *testing.T) {
	f := Featured(sample())
	if len(f) != 2 || f[0].ID != "4" || f[1].ID != "1" {
		t.Errorf("unexpected featured %+v", f)
	}
}

func TestTree(t *testing.T) {
	roots := Tree(sample())
	if len(roots) != 3 {
		t.Fatalf("expected 3 roots (incl. orphan), got %d", len(roots))
	}
	if roots[0].ID != "4" || roots[1].ID != "1" || roots[2].ID != "5" {
		t.Errorf("unexpected root order: %s %s %s", roots[0].ID, roots[1].ID, roots[2].ID)
	}
	dep := roots[1]
	if len(dep.Children) != 2 || dep.Children[0].ID != "2" {
		t.Errorf("unexpected children of Deportes: %+v", dep.Children)
	}
}

func TestTreeSelfParent(t *testing.T) {
	roots := Tree([]Category{{ID: "1", ParentID: "1", Name: "loop"}})
	if len(roots) != 1 || len(roots[0].Children) != 0 {
		t.Errorf("self-parented category must be a root without children: %+v", roots)
	}
}
