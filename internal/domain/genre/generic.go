package genre

import "strings"

// genericCategories are browse tags too broad to carry ranking signal.
// "pop" in particular is a known poisoned default from one ingestion batch.
var genericCategories = map[string]struct{}{
	"pop":     {},
	"unknown": {},
	"misc":    {},
	"other":   {},
}

// IsGenericCategory reports whether slug is too uninformative to filter or
// score by.
func IsGenericCategory(slug string) bool {
	_, ok := genericCategories[strings.ToLower(slug)]
	return ok
}
