// Package sqlxrepos implements the repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// PostgreSQL error codes
const (
	uniqueViolation      = "23505"
	invalidTextRepr      = "22P02" // e.g. malformed uuid
	uniqueOpenRequestIdx = "print_requests_open_key"
)

// conditions builds a WHERE clause with $n placeholders.
type conditions struct {
	clauses []string
	args    []interface{}
}

func newConditions() *conditions {
	return &conditions{}
}

func (c *conditions) placeholder(arg interface{}) string {
	c.args = append(c.args, arg)
	return "$" + strconv.Itoa(len(c.args))
}

// add appends clause, where every "?" is bound to the next arg.
func (c *conditions) add(clause string, args ...interface{}) {
	for _, arg := range args {
		clause = strings.Replace(clause, "?", c.placeholder(arg), 1)
	}
	c.clauses = append(c.clauses, clause)
}

// addEq filters on column = value, unless value is empty.
func (c *conditions) addEq(column, value string) {
	if value == "" {
		return
	}
	c.add(column+" = ?", value)
}

func (c *conditions) String() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// likePattern matches s anywhere, case-insensitively with ILIKE.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func pqError(err error) (*pq.Error, bool) {
	pqErr, ok := errors.Cause(err).(*pq.Error)
	return pqErr, ok
}

func isInvalidUUID(err error) bool {
	pqErr, ok := pqError(err)
	return ok && pqErr.Code == invalidTextRepr
}

func isUniqueViolation(err error, constraint string) bool {
	pqErr, ok := pqError(err)
	return ok && pqErr.Code == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}

// checkAffected returns notFound when res affected no row.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "getting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}
