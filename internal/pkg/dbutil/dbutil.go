package dbutil

import (
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var limitRegex = regexp.MustCompile(`(?i)LIMIT\s+\?\s*,\s*\?`)

// Finalize rewrites a query built with `?` placeholders for the target
// driver. SQLite takes the query as-is; postgres needs `$N` placeholders and
// `LIMIT offset, count` swapped to `LIMIT count OFFSET offset`.
func Finalize(driver string, query string, args []interface{}) (string, []interface{}) {
	if driver != DriverPostgres {
		return query, args
	}
	loc := limitRegex.FindStringIndex(query)
	if loc != nil {
		prefix := query[:loc[0]]
		qCount := strings.Count(prefix, "?")
		if qCount+1 < len(args) {
			args[qCount], args[qCount+1] = args[qCount+1], args[qCount]
			query = limitRegex.ReplaceAllString(query, "LIMIT ? OFFSET ?")
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}
