// Package search filters the roster from free text and debounces rapid edits.
package search

import (
	"strings"
	"stroll-lab/domain"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
)

// Filter keeps users whose name or bio contains query, ignoring case.
// An empty query returns every user in the original order.
func Filter(users []domain.User, query string) []domain.User {
	if query == "" {
		return append([]domain.User(nil), users...)
	}
	// A Caser is stateful, so each call folds with its own.
	fold := cases.Fold()
	needle := fold.String(query)
	return lo.Filter(users, func(u domain.User, _ int) bool {
		return strings.Contains(fold.String(u.Name), needle) ||
			strings.Contains(fold.String(u.Bio), needle)
	})
}
