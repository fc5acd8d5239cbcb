package sql

import (
	"fmt"
	"strings"
)

type QueryType int

const (
	DQL QueryType = iota
	DML
	DDL
	Admin
)

func (qt QueryType) String() string {
	return []string{"DQL", "DML", "DDL", "Admin"}[qt]
}

func (qt QueryType) IsSafe() bool {
	return qt == DQL
}

var leadingKeywords = map[string]QueryType{
	"SELECT":   DQL,
	"WITH":     DQL,
	"VALUES":   DQL,
	"INSERT":   DML,
	"UPDATE":   DML,
	"DELETE":   DML,
	"REPLACE":  DML,
	"UPSERT":   DML,
	"CREATE":   DDL,
	"DROP":     DDL,
	"ALTER":    DDL,
	"TRUNCATE": DDL,
	"ATTACH":   Admin,
	"DETACH":   Admin,
	"PRAGMA":   Admin,
	"VACUUM":   Admin,
	"REINDEX":  Admin,
	"ANALYZE":  Admin,
	"BEGIN":    Admin,
	"COMMIT":   Admin,
	"ROLLBACK": Admin,
}

// Identify classifies a statement by its leading keyword. It is only used to
// describe a statement; Policy decides whether it may run.
func Identify(query string) (QueryType, error) {
	for _, t := range tokenize(query) {
		if t.kind != tokenWord {
			continue
		}
		if qt, ok := leadingKeywords[strings.ToUpper(t.text)]; ok {
			return qt, nil
		}
		break
	}

	return 0, fmt.Errorf("unable to identify query type")
}
