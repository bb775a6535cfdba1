package sql

import (
	"database/sql/driver"
	"errors"
	"io"
	"reflect"

	"github.com/kroma-labs/sentinel-querylog/querylog"
)

// Compile-time interface checks.
var (
	_ driver.Rows                           = (*otelRows)(nil)
	_ driver.RowsNextResultSet              = (*otelRows)(nil)
	_ driver.RowsColumnTypeScanType         = (*otelRows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*otelRows)(nil)
	_ driver.RowsColumnTypeNullable         = (*otelRows)(nil)
	_ driver.RowsColumnTypeLength           = (*otelRows)(nil)
	_ driver.RowsColumnTypePrecisionScale   = (*otelRows)(nil)
)

// otelRows counts the rows read from a result set and finishes its
// QueryLogger when closed.
type otelRows struct {
	rows driver.Rows
	ql   *querylog.QueryLogger
}

func newOtelRows(rows driver.Rows, ql *querylog.QueryLogger) *otelRows {
	return &otelRows{rows: rows, ql: ql}
}

// Columns implements driver.Rows.
func (r *otelRows) Columns() []string {
	return r.rows.Columns()
}

// Next implements driver.Rows.
func (r *otelRows) Next(dest []driver.Value) error {
	err := r.rows.Next(dest)
	switch {
	case err == nil:
		r.ql.IncrementRowsReturned()
	case !errors.Is(err, io.EOF):
		r.ql.RecordError(err)
	}
	return err
}

// Close implements driver.Rows.
func (r *otelRows) Close() error {
	err := r.rows.Close()
	r.ql.RecordError(err)
	r.ql.Finish()
	return err
}

// HasNextResultSet implements driver.RowsNextResultSet.
func (r *otelRows) HasNextResultSet() bool {
	if rs, ok := r.rows.(driver.RowsNextResultSet); ok {
		return rs.HasNextResultSet()
	}
	return false
}

// NextResultSet implements driver.RowsNextResultSet.
func (r *otelRows) NextResultSet() error {
	if rs, ok := r.rows.(driver.RowsNextResultSet); ok {
		return rs.NextResultSet()
	}
	return io.EOF
}

// ColumnTypeScanType implements driver.RowsColumnTypeScanType.
func (r *otelRows) ColumnTypeScanType(index int) reflect.Type {
	if ct, ok := r.rows.(driver.RowsColumnTypeScanType); ok {
		return ct.ColumnTypeScanType(index)
	}
	return reflect.TypeOf(new(any)).Elem()
}

// ColumnTypeDatabaseTypeName implements driver.RowsColumnTypeDatabaseTypeName.
func (r *otelRows) ColumnTypeDatabaseTypeName(index int) string {
	if ct, ok := r.rows.(driver.RowsColumnTypeDatabaseTypeName); ok {
		return ct.ColumnTypeDatabaseTypeName(index)
	}
	return ""
}

// ColumnTypeNullable implements driver.RowsColumnTypeNullable.
func (r *otelRows) ColumnTypeNullable(index int) (nullable, ok bool) {
	if ct, ok := r.rows.(driver.RowsColumnTypeNullable); ok {
		return ct.ColumnTypeNullable(index)
	}
	return false, false
}

// ColumnTypeLength implements driver.RowsColumnTypeLength.
func (r *otelRows) ColumnTypeLength(index int) (length int64, ok bool) {
	if ct, ok := r.rows.(driver.RowsColumnTypeLength); ok {
		return ct.ColumnTypeLength(index)
	}
	return 0, false
}

// ColumnTypePrecisionScale implements driver.RowsColumnTypePrecisionScale.
func (r *otelRows) ColumnTypePrecisionScale(index int) (precision, scale int64, ok bool) {
	if ct, ok := r.rows.(driver.RowsColumnTypePrecisionScale); ok {
		return ct.ColumnTypePrecisionScale(index)
	}
	return 0, 0, false
}
