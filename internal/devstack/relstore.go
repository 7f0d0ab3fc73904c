package devstack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aisocialapp/appcore/internal/platform"
)

// Table is one collection behind the REST surface. Update and Delete
// return the affected rows so the caller can fan them out as change
// events.
type Table interface {
	Select(ctx context.Context, q platform.Query) ([]platform.Record, error)
	Insert(ctx context.Context, rec platform.Record) (platform.Record, error)
	Update(ctx context.Context, changes platform.Record, f platform.Filter) ([]platform.Record, error)
	Delete(ctx context.Context, f platform.Filter) ([]platform.Record, error)
}

// RelTable serves one PostgreSQL-backed collection through GORM. R is
// the row model; its JSON tags are the wire columns.
type RelTable[R any] struct {
	db   *gorm.DB
	name string
}

// NewRelTable creates a relational table adapter.
func NewRelTable[R any](db *gorm.DB, name string) *RelTable[R] {
	return &RelTable[R]{db: db, name: name}
}

func (t *RelTable[R]) Select(ctx context.Context, q platform.Query) ([]platform.Record, error) {
	tx := t.db.WithContext(ctx).Table(t.name)
	tx, err := applyFilter(tx, q.Filter)
	if err != nil {
		return nil, err
	}
	for _, o := range q.Order {
		if !columnName.MatchString(o.Column) {
			return nil, fmt.Errorf("invalid order column %q", o.Column)
		}
		dir := "asc"
		if o.Descending {
			dir = "desc"
		}
		tx = tx.Order(o.Column + " " + dir)
	}
	if q.Limit > 0 {
		tx = tx.Limit(int(q.Limit))
	}
	if q.Offset > 0 {
		tx = tx.Offset(int(q.Offset))
	}

	var rows []R
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]platform.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, projectColumns(rec, q.Columns))
	}
	return records, nil
}

func (t *RelTable[R]) Insert(ctx context.Context, rec platform.Record) (platform.Record, error) {
	var row R
	if err := recordToRow(rec, &row); err != nil {
		return nil, err
	}
	if err := t.db.WithContext(ctx).Table(t.name).Create(&row).Error; err != nil {
		return nil, err
	}
	return rowToRecord(row)
}

func (t *RelTable[R]) Update(ctx context.Context, changes platform.Record, f platform.Filter) ([]platform.Record, error) {
	for column := range changes {
		if !columnName.MatchString(column) {
			return nil, fmt.Errorf("invalid column %q", column)
		}
	}
	tx := t.db.WithContext(ctx).Table(t.name)
	tx, err := applyFilter(tx, f)
	if err != nil {
		return nil, err
	}
	if err := tx.Updates(map[string]any(changes)).Error; err != nil {
		return nil, err
	}
	return t.Select(ctx, platform.Query{Collection: t.name, Filter: f})
}

func (t *RelTable[R]) Delete(ctx context.Context, f platform.Filter) ([]platform.Record, error) {
	deleted, err := t.Select(ctx, platform.Query{Collection: t.name, Filter: f})
	if err != nil {
		return nil, err
	}
	tx := t.db.WithContext(ctx).Table(t.name)
	tx, err = applyFilter(tx, f)
	if err != nil {
		return nil, err
	}
	if err := tx.Delete(new(R)).Error; err != nil {
		return nil, err
	}
	return deleted, nil
}

// applyFilter translates the condition tree into a WHERE clause.
func applyFilter(tx *gorm.DB, f platform.Filter) (*gorm.DB, error) {
	if f == nil {
		return tx, nil
	}
	sqlStr, args, err := whereClause(f)
	if err != nil {
		return nil, err
	}
	return tx.Where(sqlStr, args...), nil
}

func whereClause(f platform.Filter) (string, []any, error) {
	switch ff := f.(type) {
	case platform.Eq:
		if !columnName.MatchString(ff.Column) {
			return "", nil, fmt.Errorf("invalid column %q", ff.Column)
		}
		return ff.Column + " = ?", []any{ff.Value}, nil
	case platform.ILike:
		if !columnName.MatchString(ff.Column) {
			return "", nil, fmt.Errorf("invalid column %q", ff.Column)
		}
		return ff.Column + " ILIKE ?", []any{ff.Pattern}, nil
	case platform.In:
		if !columnName.MatchString(ff.Column) {
			return "", nil, fmt.Errorf("invalid column %q", ff.Column)
		}
		return ff.Column + " IN ?", []any{ff.Values}, nil
	case platform.And:
		return joinClauses(ff, " AND ")
	case platform.Or:
		return joinClauses(ff, " OR ")
	default:
		return "", nil, fmt.Errorf("unsupported filter %T", f)
	}
}

func joinClauses(children []platform.Filter, sep string) (string, []any, error) {
	parts := make([]string, 0, len(children))
	var args []any
	for _, child := range children {
		sqlStr, childArgs, err := whereClause(child)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+sqlStr+")")
		args = append(args, childArgs...)
	}
	return strings.Join(parts, sep), args, nil
}

// rowToRecord and recordToRow move between the typed row and the wire
// record through the row's JSON tags.
func rowToRecord(row any) (platform.Record, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	var rec platform.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func recordToRow(rec platform.Record, row any) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, row)
}

// projectColumns applies a select projection to one record.
func projectColumns(rec platform.Record, columns []string) platform.Record {
	if len(columns) == 0 {
		return rec
	}
	out := make(platform.Record, len(columns))
	for _, col := range columns {
		if v, ok := rec[col]; ok {
			out[col] = v
		}
	}
	return out
}
