package lexical

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"codesearch/internal/types"
)

// filterQuery renders f as a bleve query, conjoined with base when base is
// non-nil. Returns nil when f applies no constraints and base is nil.
func filterQuery(f types.Filter, base query.Query) query.Query {
	var conjuncts []query.Query
	if base != nil {
		conjuncts = append(conjuncts, base)
	}

	if f.Project != "" {
		conjuncts = append(conjuncts, termQuery("project", f.Project))
	}
	if f.FilePath != "" {
		conjuncts = append(conjuncts, termQuery("file_path", f.FilePath))
	}
	if len(f.Extensions) > 0 {
		conjuncts = append(conjuncts, disjunctOfTerms("extension", f.Extensions))
	}
	if len(f.Languages) > 0 {
		conjuncts = append(conjuncts, disjunctOfTerms("language", f.Languages))
	}
	for _, p := range f.PathPatterns {
		if p == "" {
			continue
		}
		wq := bleve.NewWildcardQuery("*" + p + "*")
		wq.SetField("relative_path")
		conjuncts = append(conjuncts, wq)
	}

	switch len(conjuncts) {
	case 0:
		return nil
	case 1:
		return conjuncts[0]
	default:
		return bleve.NewConjunctionQuery(conjuncts...)
	}
}

func termQuery(field, value string) query.Query {
	tq := bleve.NewTermQuery(value)
	tq.SetField(field)
	return tq
}

func disjunctOfTerms(field string, values []string) query.Query {
	qs := make([]query.Query, 0, len(values))
	for _, v := range values {
		qs = append(qs, termQuery(field, v))
	}
	return bleve.NewDisjunctionQuery(qs...)
}
