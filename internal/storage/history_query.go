package storage

import "strings"

// applyScanFilters adds WHERE clause filters for scan listings.
// The query must alias scans as sc and sources as so.
func applyScanFilters(query string, args []interface{}, filters *ScanFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	if filters.SourceID > 0 {
		query += " AND sc.source_id = ?"
		args = append(args, filters.SourceID)
	}

	if filters.RunID != "" {
		query += " AND sc.run_id = ?"
		args = append(args, filters.RunID)
	}

	if len(filters.Modes) > 0 && filters.Modes[0] != "" {
		query += " AND sc.mode IN ("
		for i, mode := range filters.Modes {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, mode)
		}
		query += ")"
	}

	if filters.PathPattern != "" {
		query += " AND so.path GLOB ?"
		args = append(args, filters.PathPattern)
	}

	if !filters.Since.IsZero() {
		query += " AND sc.created_at >= ?"
		args = append(args, filters.Since)
	}

	return query, args
}

// prefixColumns qualifies a comma separated column list with a table alias
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
