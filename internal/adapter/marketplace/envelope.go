package marketplace

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/category"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/marketplace"
)

var errListShape = errors.New("response is neither an array nor an {items, pagination} envelope")

// splitList returns the raw item array of a list response and its pagination
// block, if any.
func splitList(body []byte) ([]byte, *marketplace.Pagination, error) {
	r := gjson.ParseBytes(body)
	if r.IsArray() {
		return []byte(r.Raw), nil, nil
	}
	items := r.Get("items")
	if !r.IsObject() || !items.IsArray() {
		return nil, nil, errListShape
	}
	var pg *marketplace.Pagination
	if p := r.Get("pagination"); p.IsObject() {
		pg = &marketplace.Pagination{}
		if err := json.Unmarshal([]byte(p.Raw), pg); err != nil {
			return nil, nil, err
		}
	}
	return []byte(items.Raw), pg, nil
}

// unwrapOne returns T from an {items: T} single-object envelope, or body as is.
func unwrapOne(body []byte) []byte {
	r := gjson.ParseBytes(body)
	if items := r.Get("items"); r.IsObject() && items.IsObject() {
		return []byte(items.Raw)
	}
	return body
}

// first returns the first existing field among paths.
func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// parseTenant accepts numeric or string ids and both camel and snake case.
func parseTenant(r gjson.Result) *tenant.Tenant {
	t := &tenant.Tenant{
		ID:           first(r, "id", "communityId", "community_id").String(),
		Slug:         first(r, "slug").String(),
		Name:         first(r, "name", "displayName", "display_name").String(),
		Domain:       first(r, "domain", "host").String(),
		CDNBase:      strings.TrimRight(first(r, "cdnBase", "cdn_base", "cdnUrl").String(), "/"),
		Active:       true,
		ThemeVersion: int(first(r, "themeVersion", "theme_version").Int()),
	}
	if a := first(r, "active", "isActive", "is_active"); a.Exists() {
		t.Active = a.Bool()
	}
	if t.ThemeVersion < 1 {
		t.ThemeVersion = 1
	}
	return t
}

func parseCategory(r gjson.Result) category.Category {
	return category.Category{
		ID:        first(r, "id").String(),
		ParentID:  first(r, "parentId", "parent_id").String(),
		Name:      first(r, "name").String(),
		Slug:      first(r, "slug").String(),
		SortOrder: int(first(r, "sortOrder", "sort_order", "order").Int()),
		Featured:  first(r, "featured", "isFeatured", "is_featured").Bool(),
		ImageURL:  first(r, "imageUrl", "image_url", "image").String(),
	}
}
