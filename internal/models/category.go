package models

// Category is the top-level classification of an account path
type Category string

const (
	Income        Category = "Income"
	Expenses      Category = "Expenses"
	Assets        Category = "Assets"
	Liabilities   Category = "Liabilities"
	Uncategorized Category = "Uncategorized"
)

// Categories lists the recognised categories
func Categories() []Category {
	return []Category{Income, Expenses, Assets, Liabilities}
}

// IsBaseline reports whether accounts of this category form the pie
// chart's reference total
func (c Category) IsBaseline() bool {
	return c == Income || c == Assets
}

// IsOutflow reports whether accounts of this category become pie slices
func (c Category) IsOutflow() bool {
	return c == Expenses || c == Liabilities
}

// CategoryNames holds the account root used for each category in the ledger
type CategoryNames struct {
	Income      string `json:"income" mapstructure:"income"`
	Expenses    string `json:"expenses" mapstructure:"expenses"`
	Assets      string `json:"assets" mapstructure:"assets"`
	Liabilities string `json:"liabilities" mapstructure:"liabilities"`
}

// DefaultCategoryNames returns the conventional capitalised roots
func DefaultCategoryNames() CategoryNames {
	return CategoryNames{
		Income:      string(Income),
		Expenses:    string(Expenses),
		Assets:      string(Assets),
		Liabilities: string(Liabilities),
	}
}

// Root returns the configured account root for c
func (n CategoryNames) Root(c Category) string {
	switch c {
	case Income:
		return n.Income
	case Expenses:
		return n.Expenses
	case Assets:
		return n.Assets
	case Liabilities:
		return n.Liabilities
	}
	return ""
}
