package classifier

import (
	"strings"

	"ledgerviz/internal/models"
)

// Classifier maps account paths to their top-level category
type Classifier struct {
	names models.CategoryNames
	roots map[string]models.Category
}

// New creates a classifier for the given category roots. Empty names fall
// back to the defaults.
func New(names models.CategoryNames) *Classifier {
	defaults := models.DefaultCategoryNames()
	if names.Income == "" {
		names.Income = defaults.Income
	}
	if names.Expenses == "" {
		names.Expenses = defaults.Expenses
	}
	if names.Assets == "" {
		names.Assets = defaults.Assets
	}
	if names.Liabilities == "" {
		names.Liabilities = defaults.Liabilities
	}

	c := &Classifier{
		names: names,
		roots: make(map[string]models.Category),
	}
	for _, cat := range models.Categories() {
		c.roots[strings.ToLower(names.Root(cat))] = cat
	}
	return c
}

// Default returns a classifier for Income/Expenses/Assets/Liabilities
func Default() *Classifier {
	return New(models.DefaultCategoryNames())
}

// Names returns the category roots in use
func (c *Classifier) Names() models.CategoryNames {
	return c.names
}

// Classify returns the category of an account. The lookup is on the first
// path segment only, so every account maps to exactly one category.
func (c *Classifier) Classify(account string) models.Category {
	root := strings.TrimSpace(account)
	if i := strings.Index(root, models.AccountSeparator); i >= 0 {
		root = root[:i]
	}
	if cat, ok := c.roots[strings.ToLower(root)]; ok {
		return cat
	}
	return models.Uncategorized
}

// Root returns the account root configured for cat
func (c *Classifier) Root(cat models.Category) string {
	return c.names.Root(cat)
}

// HasCategory reports whether any account belongs to cat
func (c *Classifier) HasCategory(accounts []string, cat models.Category) bool {
	for _, a := range accounts {
		if c.Classify(a) == cat {
			return true
		}
	}
	return false
}

// Partition groups accounts by category, keeping input order inside each
// group
func (c *Classifier) Partition(accounts []string) map[models.Category][]string {
	groups := make(map[models.Category][]string)
	for _, a := range accounts {
		cat := c.Classify(a)
		groups[cat] = append(groups[cat], a)
	}
	return groups
}
