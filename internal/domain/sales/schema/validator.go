package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/sales-insights/internal/domain/sales/dataset"
	"github.com/FACorreiaa/sales-insights/pkg/apperr"
)

// maxSuggestionDistance bounds how far a present column may be from a missing one
// to still be offered as a suggestion.
const maxSuggestionDistance = 4

// Missing returns the required columns absent from ds, in contract order.
func Missing(ds *dataset.Dataset) []string {
	var missing []string
	for _, c := range requiredColumns {
		if !ds.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// Validate checks that every required column is present by exact name.
// Extra columns are allowed. The dataset is never modified.
func Validate(ds *dataset.Dataset) error {
	missing := Missing(ds)
	if len(missing) == 0 {
		return nil
	}
	return apperr.Validation(
		"Faltan columnas requeridas: "+strings.Join(missing, ", "),
		fmt.Sprintf("Requeridas: %s", strings.Join(requiredColumns[:], ", ")),
	)
}

// Suggestions maps each missing required column to the present columns that look
// like misspellings of it (accent or case differences, small typos), closest first.
func Suggestions(ds *dataset.Dataset) map[string][]string {
	missing := Missing(ds)
	if len(missing) == 0 {
		return nil
	}

	present := ds.Columns()
	out := make(map[string][]string, len(missing))
	for _, want := range missing {
		type candidate struct {
			name     string
			distance int
		}
		var candidates []candidate
		for _, have := range present {
			d := fuzzy.LevenshteinDistance(foldColumn(want), foldColumn(have))
			if d <= maxSuggestionDistance {
				candidates = append(candidates, candidate{name: have, distance: d})
			}
		}
		if len(candidates) == 0 {
			continue
		}
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].distance < candidates[j].distance
		})
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = c.name
		}
		out[want] = names
	}
	return out
}

var accentFolder = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u")

// foldColumn lowercases and strips Spanish accents so "Categoria" matches "Categoría".
func foldColumn(s string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}
