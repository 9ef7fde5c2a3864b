package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"dataapi/internal/model"
	"dataapi/internal/query"
	"dataapi/internal/repository"
	"dataapi/internal/schema"
)

// RecordPostgres is a PostgreSQL implementation of repository.RecordRepository.
// It builds parameterized SQL from schema metadata and contains no business
// logic. Column names come from the schema registry, never from request input.
type RecordPostgres struct {
	db *sql.DB
}

// NewRecordPostgres creates a new RecordPostgres repository.
func NewRecordPostgres(db *sql.DB) *RecordPostgres {
	return &RecordPostgres{db: db}
}

var _ repository.RecordRepository = (*RecordPostgres)(nil)

// List returns a keyset-paginated page. It fetches limit+1 rows to decide
// whether a next cursor exists without a second query.
func (r *RecordPostgres) List(ctx context.Context, m *schema.Model, q repository.ListQuery) (*repository.ListPage, error) {
	cols := strings.Join(m.Columns(), ", ")

	var (
		conds []string
		args  []any
	)
	if q.Filter != nil {
		clause, filterArgs, err := query.CompileFilter(q.Filter, len(args))
		if err != nil {
			return nil, err
		}
		conds = append(conds, clause)
		args = append(args, filterArgs...)
	}
	if q.Cursor != nil {
		conds = append(conds, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)+1, len(args)+2))
		args = append(args, q.Cursor.CreatedAt, q.Cursor.ID)
	}

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "SELECT %s FROM %s", cols, m.Table)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	fmt.Fprintf(sb, " ORDER BY created_at DESC, id DESC LIMIT $%d", len(args)+1)
	args = append(args, q.Limit+1)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &repository.ListPage{Items: make([]model.Record, 0, q.Limit)}
	var (
		fetched int
		lastCA  time.Time
		lastID  string
	)
	for rows.Next() {
		fetched++
		if len(page.Items) == q.Limit {
			// The extra row only proves another page exists; it is not
			// consumed here and must not advance the cursor.
			break
		}
		rec, err := scanRecord(rows, m)
		if rec != nil {
			if ca, ok := rec["created_at"].(time.Time); ok {
				lastCA = ca
			}
			if id := rec.ID(); id != "" {
				lastID = id
			}
		}
		if err != nil {
			page.ScanErrors = append(page.ScanErrors, err)
			continue
		}
		page.Items = append(page.Items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// limit+1 fetched rows prove more data exists even when some of them
	// failed to scan. The cursor points at the last row this page consumed,
	// returned or reported, so pagination never terminates early.
	if fetched > q.Limit && lastID != "" {
		page.NextCursor = &query.Cursor{CreatedAt: lastCA, ID: lastID}
	}
	return page, nil
}

// FindByID fetches a single record by primary key.
func (r *RecordPostgres) FindByID(ctx context.Context, m *schema.Model, id string) (model.Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", strings.Join(m.Columns(), ", "), m.Table)
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	rec, err := scanRecord(rows, m)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// FindRelated returns the children of a hasMany relation ordered like List.
func (r *RecordPostgres) FindRelated(ctx context.Context, rel *schema.Model, foreignKey, parentID string) ([]model.Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 ORDER BY created_at DESC, id DESC",
		strings.Join(rel.Columns(), ", "), rel.Table, foreignKey)
	rows, err := r.db.QueryContext(ctx, q, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows, rel)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Create inserts a record with all schema columns and returns the stored row.
func (r *RecordPostgres) Create(ctx context.Context, m *schema.Model, rec model.Record) (model.Record, error) {
	cols := m.Columns()
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rec[c]
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		m.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), strings.Join(cols, ", "))
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	rec, err = scanRecord(rows, m)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Update applies the given changes in schema column order and returns the
// stored row.
func (r *RecordPostgres) Update(ctx context.Context, m *schema.Model, id string, changes model.Record) (model.Record, error) {
	var (
		sets []string
		args []any
	)
	for _, c := range m.Columns() {
		v, ok := changes[c]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", c, len(args)))
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, m, id)
	}
	args = append(args, id)

	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		m.Table, strings.Join(sets, ", "), len(args), strings.Join(m.Columns(), ", "))
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}
	rec, err := scanRecord(rows, m)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a record by id. It does not report missing rows.
func (r *RecordPostgres) Delete(ctx context.Context, m *schema.Model, id string) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = $1", m.Table)
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// scanRecord reads the current row into a Record using schema field types.
// Columns are fetched raw and converted per field, so one bad value does not
// lose the whole row: the returned Record carries every column that did
// convert (NULLs as nil) alongside the error, which lets List keep its keyset
// position for rows it cannot fully decode.
func scanRecord(rows *sql.Rows, m *schema.Model) (model.Record, error) {
	raw := make([]any, len(m.Fields))
	for i := range raw {
		raw[i] = new(any)
	}
	if err := rows.Scan(raw...); err != nil {
		return nil, err
	}

	rec := make(model.Record, len(m.Fields))
	var convErr error
	for i, f := range m.Fields {
		v, err := fieldValue(*(raw[i].(*any)), f.Type)
		if err != nil {
			if convErr == nil {
				convErr = fmt.Errorf("column %s: %w", f.Name, err)
			}
			continue
		}
		rec[f.Name] = v
	}
	return rec, convErr
}

// fieldValue converts a raw driver value to the Go type the schema declares
// for the field. Conversion goes through the sql.Null* scanners so driver
// representations (int64, []byte, strings) are handled uniformly.
func fieldValue(v any, t schema.FieldType) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case schema.TypeInt:
		var d sql.NullInt64
		if err := d.Scan(v); err != nil {
			return nil, err
		}
		return d.Int64, nil
	case schema.TypeFloat:
		var d sql.NullFloat64
		if err := d.Scan(v); err != nil {
			return nil, err
		}
		return d.Float64, nil
	case schema.TypeBool:
		var d sql.NullBool
		if err := d.Scan(v); err != nil {
			return nil, err
		}
		return d.Bool, nil
	case schema.TypeTime:
		var d sql.NullTime
		if err := d.Scan(v); err != nil {
			return nil, err
		}
		return d.Time, nil
	default:
		var d sql.NullString
		if err := d.Scan(v); err != nil {
			return nil, err
		}
		return d.String, nil
	}
}
