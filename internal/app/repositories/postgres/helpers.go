package postgres

import "strings"

func putString(set map[string]interface{}, column string, value *string) {
	if value != nil {
		set[column] = *value
	}
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
