package harness

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/store"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Only allows alphanumeric and underscore, must start with letter or underscore.
// This prevents SQL injection via identifier interpolation.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// previewRows bounds the rows printed with an AssertionError.
const previewRows = 5

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Table    *store.Table // Recorded table for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.Table != nil && len(e.Table.Columns) > 0 {
		keys := make([]string, len(e.Table.Columns))
		for i, c := range e.Table.Columns {
			keys[i] = c.Key
		}
		fmt.Fprintf(&buf, "\nRecorded table (%d rows):\n", len(e.Table.Rows))
		fmt.Fprintf(&buf, "  %s\n", strings.Join(keys, " | "))
		for i, row := range e.Table.Rows {
			if i == previewRows {
				fmt.Fprintf(&buf, "  ...\n")
				break
			}
			cells := make([]string, len(row))
			for j, v := range row {
				cells[j] = ir.Format(v)
			}
			fmt.Fprintf(&buf, "  [%d] %s\n", i, strings.Join(cells, " | "))
		}
	}

	return buf.String()
}

// column returns the position of a captured node in the table.
func column(table *store.Table, key string) (int, bool) {
	for i, c := range table.Columns {
		if c.Key == key {
			return i, true
		}
	}
	return 0, false
}

func missingColumn(typ string, table *store.Table, key string) error {
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("column %s in the recorded table", key),
		Actual:   "node was not captured (not a required input or a selected output)",
		Table:    table,
	}
}

// valueMatches compares a YAML-parsed expected value with a recorded value.
// Numbers match within tolerance; other kinds must be equal.
func valueMatches(expected any, actual ir.Value, tolerance float64) bool {
	want, err := ir.FromAny(expected)
	if err != nil {
		return false
	}
	wn, wok := want.(ir.Number)
	an, aok := actual.(ir.Number)
	if wok && aok {
		if ir.Equal(wn, an) {
			return true
		}
		return math.Abs(float64(wn)-float64(an)) <= tolerance
	}
	return ir.Equal(want, actual)
}

// assertValues checks that a column holds exactly the expected values in order.
func assertValues(table *store.Table, assertion Assertion) error {
	col, ok := column(table, assertion.Node)
	if !ok {
		return missingColumn(AssertValues, table, assertion.Node)
	}

	got := make([]ir.Value, len(table.Rows))
	for i, row := range table.Rows {
		got[i] = row[col]
	}

	mismatch := len(got) != len(assertion.Values)
	for i := 0; !mismatch && i < len(got); i++ {
		mismatch = !valueMatches(assertion.Values[i], got[i], assertion.Tolerance)
	}
	if mismatch {
		return &AssertionError{
			Type:     AssertValues,
			Expected: fmt.Sprintf("%s = %v", assertion.Node, assertion.Values),
			Actual:   fmt.Sprintf("%s = %s", assertion.Node, formatValues(got)),
			Table:    table,
		}
	}
	return nil
}

// assertRow checks the expected values of one row (subset match).
func assertRow(table *store.Table, assertion Assertion) error {
	if assertion.Index >= len(table.Rows) {
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("row %d", assertion.Index),
			Actual:   fmt.Sprintf("%d rows recorded", len(table.Rows)),
			Table:    table,
		}
	}
	row := table.Rows[assertion.Index]

	for _, key := range sortedKeys(assertion.Expect) {
		col, ok := column(table, key)
		if !ok {
			return missingColumn(AssertRow, table, key)
		}
		if !valueMatches(assertion.Expect[key], row[col], assertion.Tolerance) {
			return &AssertionError{
				Type:     AssertRow,
				Expected: fmt.Sprintf("row %d: %s = %v", assertion.Index, key, assertion.Expect[key]),
				Actual:   fmt.Sprintf("row %d: %s = %s", assertion.Index, key, ir.Format(row[col])),
				Table:    table,
			}
		}
	}
	return nil
}

// assertCount checks the number of rows matching every Where entry.
func assertCount(table *store.Table, assertion Assertion) error {
	keys := sortedKeys(assertion.Where)
	cols := make([]int, len(keys))
	for i, key := range keys {
		col, ok := column(table, key)
		if !ok {
			return missingColumn(AssertCount, table, key)
		}
		cols[i] = col
	}

	count := 0
	for _, row := range table.Rows {
		match := true
		for i, key := range keys {
			if !valueMatches(assertion.Where[key], row[cols[i]], assertion.Tolerance) {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d rows where %s", assertion.Count, formatWhereClause(assertion.Where)),
			Actual:   fmt.Sprintf("%d rows", count),
			Table:    table,
		}
	}
	return nil
}

// assertMonotonic checks that consecutive numeric values in a column move
// in the given direction.
func assertMonotonic(table *store.Table, assertion Assertion) error {
	col, ok := column(table, assertion.Node)
	if !ok {
		return missingColumn(AssertMonotonic, table, assertion.Node)
	}

	var prev float64
	for i, row := range table.Rows {
		n, ok := row[col].(ir.Number)
		if !ok {
			return &AssertionError{
				Type:     AssertMonotonic,
				Expected: fmt.Sprintf("numeric %s", assertion.Node),
				Actual:   fmt.Sprintf("row %d holds %s", i, ir.KindOf(row[col])),
				Table:    table,
			}
		}
		cur := float64(n)
		if i > 0 && !inDirection(assertion.Direction, prev, cur) {
			return &AssertionError{
				Type:     AssertMonotonic,
				Expected: fmt.Sprintf("%s %s", assertion.Node, assertion.Direction),
				Actual: fmt.Sprintf("row %d = %s follows row %d = %s",
					i, ir.Format(n), i-1, ir.Format(ir.Number(prev))),
				Table: table,
			}
		}
		prev = cur
	}
	return nil
}

func inDirection(direction string, prev, cur float64) bool {
	switch direction {
	case DirectionIncreasing:
		return cur > prev
	case DirectionDecreasing:
		return cur < prev
	case DirectionNondecreasing:
		return cur >= prev
	case DirectionNonincreasing:
		return cur <= prev
	default:
		return false
	}
}

// assertInputs checks the set of captured input columns.
func assertInputs(table *store.Table, assertion Assertion) error {
	var got []string
	for _, c := range table.Columns {
		if c.Input {
			got = append(got, c.Key)
		}
	}
	want := slices.Clone(assertion.Nodes)
	sort.Strings(got)
	sort.Strings(want)

	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertInputs,
			Expected: fmt.Sprintf("input columns %v", want),
			Actual:   fmt.Sprintf("input columns %v", got),
			Table:    table,
		}
	}
	return nil
}

// assertStored checks that a store table contains expected values.
// Queries the table with parameterized SQL and validates expected values
// using subset semantics.
//
// Security: Table and column names are validated against a whitelist pattern
// to prevent SQL injection via identifier interpolation.
func assertStored(ctx context.Context, st *store.Store, assertion Assertion) error {
	if !validIdentifier.MatchString(assertion.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", assertion.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(assertion.Where)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s", assertion.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("query table %s", assertion.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	// Multiple matching rows make the assertion ambiguous.
	if rows.Next() {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("exactly one row in %s where %s", assertion.Table, formatWhereClause(assertion.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]any, len(columns))
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertStored,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertStored,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}

	return nil
}

// buildWhereClause constructs parameterized WHERE clause from assertion.Where.
// Returns SQL fragment, arguments slice, and error. Keys are sorted for determinism.
func buildWhereClause(where map[string]any) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}

	keys := sortedKeys(where)
	clauses := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))

	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, toSQLValue(where[key]))
	}

	return strings.Join(clauses, " AND "), args, nil
}

// toSQLValue converts a YAML-parsed value to a SQL-compatible value.
func toSQLValue(v any) any {
	switch val := v.(type) {
	case string, int, int64, float64:
		return val
	case bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// stateValuesEqual compares expected and actual values from store tables.
// Handles type coercion for SQLite values which may be returned as different types.
func stateValuesEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	if b, ok := actual.([]byte); ok {
		actual = string(b)
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case int:
		return stateValuesEqual(int64(exp), actual)
	case int64:
		switch act := actual.(type) {
		case int64:
			return exp == act
		case float64:
			return float64(exp) == act
		}
		return false
	case float64:
		switch act := actual.(type) {
		case int64:
			return exp == float64(act)
		case float64:
			return exp == act
		}
		return false
	case bool:
		switch act := actual.(type) {
		case bool:
			return exp == act
		case int64:
			// SQLite stores booleans as integers
			return exp == (act != 0)
		}
		return false
	}
	return false
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides database access for stored assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertValues, AssertRow, AssertCount, AssertMonotonic, AssertInputs:
			if result.Table == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a recorded run", i, assertion.Type)
				break
			}
			switch assertion.Type {
			case AssertValues:
				err = assertValues(result.Table, assertion)
			case AssertRow:
				err = assertRow(result.Table, assertion)
			case AssertCount:
				err = assertCount(result.Table, assertion)
			case AssertMonotonic:
				err = assertMonotonic(result.Table, assertion)
			case AssertInputs:
				err = assertInputs(result.Table, assertion)
			}
		case AssertStored:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored requires database context", i)
			} else {
				err = assertStored(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func formatValues(vals []ir.Value) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = ir.Format(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
