package vectorstore

import (
	"strings"

	"codesearch/internal/types"
)

// filterClause renders f as a SQL WHERE fragment (without the leading
// "WHERE") and its positional arguments, shared by Search and DeleteBy so
// the two can never disagree on filter semantics.
func filterClause(f types.Filter) (string, []any) {
	var clauses []string
	var args []any

	if f.Project != "" {
		clauses = append(clauses, "project = ?")
		args = append(args, f.Project)
	}
	if f.FilePath != "" {
		clauses = append(clauses, "file_path = ?")
		args = append(args, f.FilePath)
	}
	if len(f.Extensions) > 0 {
		clauses = append(clauses, "extension IN ("+placeholders(len(f.Extensions))+")")
		for _, e := range f.Extensions {
			args = append(args, e)
		}
	}
	if len(f.Languages) > 0 {
		clauses = append(clauses, "language IN ("+placeholders(len(f.Languages))+")")
		for _, l := range f.Languages {
			args = append(args, l)
		}
	}
	for _, p := range f.PathPatterns {
		if p == "" {
			continue
		}
		clauses = append(clauses, "relative_path LIKE ?")
		args = append(args, "%"+escapeLike(p)+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return strings.Join(clauses, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
