package feed

import (
	_ "embed"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed categories.yaml
var categoriesYAML []byte

// Category describes one arXiv category that can be synced.
type Category struct {
	ID          string `yaml:"-"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

var categories = mustLoadCategories()

func mustLoadCategories() map[string]Category {
	raw := map[string]Category{}
	if err := yaml.Unmarshal(categoriesYAML, &raw); err != nil {
		panic(eris.Wrap(err, "feed: parse embedded categories"))
	}
	for id, c := range raw {
		c.ID = id
		raw[id] = c
	}
	return raw
}

// LookupCategory returns the category with the given id.
func LookupCategory(id string) (Category, error) {
	c, ok := categories[id]
	if !ok {
		return Category{}, eris.Errorf("feed: unknown category %q", id)
	}
	return c, nil
}

// Categories returns all known categories sorted by id.
func Categories() []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
