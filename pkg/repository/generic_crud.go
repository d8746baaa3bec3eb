package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// SQLExecutor is satisfied by *sql.DB, *sql.Tx and store/postgres.Adapter.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// EntityMapper maps between an entity and a table row. FromRow must scan
// columns in table order, since reads use SELECT *.
type EntityMapper[T any, ID comparable] interface {
	ToRow(entity *T) (columns []string, values []interface{}, err error)
	FromRow(rows *sql.Rows) (*T, error)
	GetID(entity *T) ID
}

// GenericCrudRepository implements table CRUD on top of an EntityMapper.
type GenericCrudRepository[T any, ID comparable] struct {
	executor  SQLExecutor
	tableName string
	idColumn  string
	mapper    EntityMapper[T, ID]
}

// NewGenericCrudRepository creates a repository for tableName keyed by idColumn.
func NewGenericCrudRepository[T any, ID comparable](
	executor SQLExecutor,
	tableName string,
	idColumn string,
	mapper EntityMapper[T, ID],
) *GenericCrudRepository[T, ID] {
	return &GenericCrudRepository[T, ID]{
		executor:  executor,
		tableName: tableName,
		idColumn:  idColumn,
		mapper:    mapper,
	}
}

// Create inserts entity.
func (r *GenericCrudRepository[T, ID]) Create(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.New("entity cannot be nil")
	}

	columns, values, err := r.mapper.ToRow(entity)
	if err != nil {
		return fmt.Errorf("failed to map entity to row: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.tableName,
		strings.Join(columns, ", "),
		strings.Join(placeholders(1, len(columns)), ", "),
	)

	if _, err := r.executor.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// FindByID returns sql.ErrNoRows when no row has the id.
func (r *GenericCrudRepository[T, ID]) FindByID(ctx context.Context, id ID) (*T, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", r.tableName, r.idColumn)

	rows, err := r.executor.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query entity: %w", err)
		}
		return nil, sql.ErrNoRows
	}

	entity, err := r.mapper.FromRow(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}
	return entity, nil
}

// FindAll returns the rows matching opts. Filter fields combine with AND and
// are emitted in name order so the generated SQL is stable.
func (r *GenericCrudRepository[T, ID]) FindAll(ctx context.Context, opts QueryOptions) ([]T, error) {
	query := fmt.Sprintf("SELECT * FROM %s", r.tableName)
	where, args := whereClause(opts.Filter)
	query += where

	if opts.Sort.Field != "" {
		order := "ASC"
		if opts.Sort.Order == SortDesc {
			order = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", opts.Sort.Field, order)
	}

	if opts.Pagination.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, opts.Pagination.Limit(), opts.Pagination.Offset())
	}

	rows, err := r.executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	entities := []T{}
	for rows.Next() {
		entity, err := r.mapper.FromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, *entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entities, nil
}

// Update writes every mapped column of entity. Entities implementing
// Versioned are updated under an optimistic lock. Returns sql.ErrNoRows when
// the row does not exist.
func (r *GenericCrudRepository[T, ID]) Update(ctx context.Context, entity *T) error {
	if entity == nil {
		return errors.New("entity cannot be nil")
	}

	id := r.mapper.GetID(entity)
	columns, values, err := r.mapper.ToRow(entity)
	if err != nil {
		return fmt.Errorf("failed to map entity to row: %w", err)
	}

	versioned, locked := any(entity).(Versioned)
	var current int64
	if locked {
		current = versioned.GetVersion()
		for i, col := range columns {
			if col == versionColumn {
				values[i] = current + 1
			}
		}
	}

	setClauses := make([]string, len(columns))
	for i, col := range columns {
		setClauses[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		r.tableName,
		strings.Join(setClauses, ", "),
		r.idColumn,
		len(values)+1,
	)
	values = append(values, id)
	if locked {
		query += fmt.Sprintf(" AND %s = $%d", versionColumn, len(values)+1)
		values = append(values, current)
	}

	result, err := r.executor.ExecContext(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		if !locked {
			return sql.ErrNoRows
		}
		return r.lockConflict(ctx, id, current)
	}

	if locked {
		versioned.SetVersion(current + 1)
	}
	return nil
}

// lockConflict tells a missing row apart from a stale version.
func (r *GenericCrudRepository[T, ID]) lockConflict(ctx context.Context, id ID, expected int64) error {
	var actual int64
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", versionColumn, r.tableName, r.idColumn)
	err := r.executor.QueryRowContext(ctx, query, id).Scan(&actual)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.ErrNoRows
	}
	if err != nil {
		return fmt.Errorf("failed to check entity version: %w", err)
	}
	return NewOptimisticLockError(fmt.Sprintf("%v", id), expected, actual)
}

func whereClause(filter Filter) (string, []interface{}) {
	if len(filter) == 0 {
		return "", nil
	}
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	clauses := make([]string, len(fields))
	args := make([]interface{}, len(fields))
	for i, field := range fields {
		clauses[i] = fmt.Sprintf("%s = $%d", field, i+1)
		args[i] = filter[field]
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func placeholders(from, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("$%d", from+i)
	}
	return out
}
