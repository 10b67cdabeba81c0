package edge

import (
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TypeName derives a canonical edge type from a family name: the singular
// form, snake cased, in upper case.
func TypeName(family string) string {
	family = strings.TrimSpace(family)
	if family == "" {
		return ""
	}
	return cases.Upper(language.Und).String(inflect.Underscore(inflect.Singularize(family)))
}
