// Package accounts holds helpers over account path lists.
package accounts

import (
	"sort"
	"strings"

	"ledgerviz/internal/models"
	"ledgerviz/internal/services/classifier"
)

// RemoveDuplicateAccounts returns accounts with repeats dropped, keeping the
// first occurrence of each. The input slice is not modified.
func RemoveDuplicateAccounts(accounts []string) []string {
	seen := make(map[string]bool, len(accounts))
	unique := make([]string, 0, len(accounts))

	for _, a := range accounts {
		if !seen[a] {
			seen[a] = true
			unique = append(unique, a)
		}
	}

	return unique
}

// WithDefaultCategory returns a new list that also contains the category
// root a percentage chart needs as its denominator: Income when only
// expenses are selected, otherwise Assets when only liabilities are.
// When neither applies the result is a copy of accounts.
func WithDefaultCategory(accts []string, c *classifier.Classifier) []string {
	result := make([]string, len(accts), len(accts)+1)
	copy(result, accts)

	switch {
	case !c.HasCategory(accts, models.Income) && c.HasCategory(accts, models.Expenses):
		result = append(result, c.Root(models.Income))
	case !c.HasCategory(accts, models.Assets) && c.HasCategory(accts, models.Liabilities):
		result = append(result, c.Root(models.Assets))
	}

	return result
}

// Parent returns the parent path of account, or "" for a root
func Parent(account string) string {
	i := strings.LastIndex(account, models.AccountSeparator)
	if i < 0 {
		return ""
	}
	return account[:i]
}

// Ancestors returns every proper ancestor of account, nearest first
func Ancestors(account string) []string {
	var result []string
	for p := Parent(account); p != ""; p = Parent(p) {
		result = append(result, p)
	}
	return result
}

// IsDescendant reports whether account sits below parent in the hierarchy
func IsDescendant(account, parent string) bool {
	return strings.HasPrefix(account, parent+models.AccountSeparator)
}

// LeafDescendants returns the accounts in all that are below parent and have
// no children of their own in all
func LeafDescendants(parent string, all []string) []string {
	var descendants []string
	for _, a := range all {
		if IsDescendant(a, parent) {
			descendants = append(descendants, a)
		}
	}

	var leaves []string
	for _, a := range descendants {
		leaf := true
		for _, other := range descendants {
			if IsDescendant(other, a) {
				leaf = false
				break
			}
		}
		if leaf {
			leaves = append(leaves, a)
		}
	}
	return leaves
}

// WithAncestors returns the sorted set of accounts plus all their ancestors
func WithAncestors(accts []string) []string {
	set := make(map[string]bool)
	for _, a := range accts {
		if a == "" {
			continue
		}
		set[a] = true
		for _, p := range Ancestors(a) {
			set[p] = true
		}
	}

	result := make([]string, 0, len(set))
	for a := range set {
		result = append(result, a)
	}
	sort.Strings(result)
	return result
}

// SplitList splits comma separated account lists, trimming blanks
func SplitList(values []string) []string {
	var result []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	}
	return result
}
