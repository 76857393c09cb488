// Package identifier implements a bleve token filter that splits
// camelCase identifiers into their constituent words while retaining the
// original token, satisfying spec §4.5's "identifier-aware splitting"
// requirement: a search for "authenticateUser" must find "authenticate_user"
// and vice versa. The tokenizer this filter sits behind already splits on
// non-alphanumeric characters, so snake_case identifiers arrive pre-split
// into separate tokens ("authenticate", "user") before this filter ever
// runs; this filter's job is purely the camelCase half of the contract.
package identifier

import (
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// Name is the token filter name registered with bleve's analysis registry.
const Name = "identifier_expand"

// Filter splits camelCase terms into sub-words, appending them after the
// original token so both spellings are searchable.
type Filter struct{}

// New constructs a Filter.
func New() *Filter { return &Filter{} }

// Filter implements analysis.TokenFilter.
func (f *Filter) Filter(input analysis.TokenStream) analysis.TokenStream {
	output := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		output = append(output, token)
		parts := splitCamel(string(token.Term))
		if len(parts) <= 1 {
			continue
		}
		for _, p := range parts {
			output = append(output, &analysis.Token{
				Term:     []byte(p),
				Start:    token.Start,
				End:      token.End,
				Position: token.Position,
				Type:     token.Type,
			})
		}
	}
	return output
}

// splitCamel splits s at every lowercase/digit-to-uppercase transition.
func splitCamel(s string) []string {
	runes := []rune(s)
	var parts []string
	var cur []rune
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			parts = append(parts, string(cur))
			cur = nil
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

// Constructor builds a Filter from a bleve custom-analyzer config; the
// filter takes no configuration of its own.
func Constructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return New(), nil
}

func init() {
	registry.RegisterTokenFilter(Name, Constructor)
}
