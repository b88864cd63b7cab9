// Package catalog narrows table descriptor collections by free-text search and
// by topical category keywords. All functions are pure.
package catalog

import (
	"strings"

	"github.com/ekaya-inc/ekaya-catalog/pkg/models"
)

// SearchByTerm keeps tables whose name or comment contains term, ignoring case.
// A blank term returns the input unchanged. A missing comment never matches.
func SearchByTerm(tables []models.TableDescriptor, term string) []models.TableDescriptor {
	term = strings.TrimSpace(term)
	if term == "" {
		return tables
	}
	needle := strings.ToLower(term)

	out := make([]models.TableDescriptor, 0)
	for _, t := range tables {
		if matches(t, needle) {
			out = append(out, t)
		}
	}
	return out
}

// FilterByKeywords keeps tables whose name or comment contains any of the
// keywords, ignoring case. An empty keyword set returns the input unchanged.
func FilterByKeywords(tables []models.TableDescriptor, keywords []string) []models.TableDescriptor {
	needles := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			needles = append(needles, strings.ToLower(k))
		}
	}
	if len(needles) == 0 {
		return tables
	}

	out := make([]models.TableDescriptor, 0)
	for _, t := range tables {
		for _, n := range needles {
			if matches(t, n) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Apply runs SearchByTerm and then FilterByKeywords over the union of the
// selected categories' keywords.
func Apply(tables []models.TableDescriptor, term string, categories ...models.Category) []models.TableDescriptor {
	out := SearchByTerm(tables, term)
	var keywords []string
	for _, c := range categories {
		keywords = append(keywords, c.Keywords...)
	}
	return FilterByKeywords(out, keywords)
}

func matches(t models.TableDescriptor, needle string) bool {
	if strings.Contains(strings.ToLower(t.Name), needle) {
		return true
	}
	return t.Comment != nil && strings.Contains(strings.ToLower(*t.Comment), needle)
}
