// Package gormstore serves pages from an SQL table through gorm. The
// synthesized filter becomes a WHERE clause, the store sort an ORDER BY and
// the dataset limit a LIMIT, so every page costs exactly one query.
//
// Case-insensitive columns are also selected as LOWER(column) under their
// folded field name, so cursors carry the key the database compares.
package gormstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Alp4ka/docpager"
)

var _ docpager.Store = (*Store)(nil)

type Store struct {
	db       *gorm.DB
	table    string
	idColumn string
}

// New returns a store reading rows of table. db may already carry
// conditions, e.g. db.Where("deleted_at IS NULL"); they are ANDed with the
// page filter. An empty table leaves the table selection to db.
func New(db *gorm.DB, table, idColumn string) *Store {
	return &Store{
		db:       db.Session(&gorm.Session{}),
		table:    table,
		idColumn: idColumn,
	}
}

func (s *Store) query(ctx context.Context) *gorm.DB {
	tx := s.db.WithContext(ctx)
	if s.table != "" {
		tx = tx.Table(s.table)
	}

	return tx
}

func (s *Store) Find(ctx context.Context, q docpager.Query) ([]docpager.Document, error) {
	tx := s.query(ctx)

	if selects := selectList(q.Projection.Paths(), q.Sort.FoldedColumns()); len(selects) > 0 {
		tx = tx.Select(selects)
	}

	if expr := q.Filter.ToGORMExpression(); expr != nil {
		tx = tx.Clauses(expr)
	}

	if len(q.Sort) > 0 {
		tx = q.Sort.Apply(tx)
	}

	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []map[string]any
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}

	wanted := append(q.Sort.Columns(), s.idColumn)
	wanted = append(wanted, q.Projection.Paths()...)

	return toDocuments(rows, wanted), nil
}

func (s *Store) Lookup(ctx context.Context, id any, fields []string) (docpager.Document, error) {
	tx := s.query(ctx)

	plain, folded := docpager.SplitFoldedFields(fields)
	if selects := selectList(docpager.Include(plain...).Paths(), folded); len(selects) > 0 {
		tx = tx.Select(selects)
	}

	var rows []map[string]any

	err := tx.
		Where(clause.Eq{Column: clause.Column{Name: s.idColumn}, Value: id}).
		Limit(1).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s = %v", docpager.ErrNotFound, s.idColumn, id)
	}

	return toDocuments(rows, append(plain, s.idColumn))[0], nil
}

// selectList returns the SELECT columns: the projected paths, or every
// column, followed by "LOWER(column) AS <folded field>" for each folded
// column. Nothing to add leaves the SELECT to gorm.
func selectList(paths []string, folded []string) []string {
	if len(folded) == 0 {
		return paths
	}

	ret := slices.Clone(paths)
	if len(ret) == 0 {
		ret = []string{"*"}
	}

	for _, column := range folded {
		ret = append(ret, fmt.Sprintf("LOWER(%s) AS %s", column, docpager.FoldedField(column)))
	}

	return ret
}

// toDocuments converts scanned rows. SQL NULL arrives as nil and stays in
// the null bucket.
//
// Drivers report a qualified column such as users.name under its bare name,
// so every wanted qualified column is moved back under its qualified name.
// The bare key stays when it is wanted as well.
func toDocuments(rows []map[string]any, wanted []string) []docpager.Document {
	qualified := lo.Uniq(lo.Filter(wanted, func(column string, _ int) bool {
		return strings.Contains(column, ".")
	}))

	return lo.Map(rows, func(row map[string]any, _ int) docpager.Document {
		for _, column := range qualified {
			if _, ok := row[column]; ok {
				continue
			}

			bare := column[strings.LastIndex(column, ".")+1:]

			v, ok := row[bare]
			if !ok {
				continue
			}

			row[column] = v
			if !slices.Contains(wanted, bare) {
				delete(row, bare)
			}
		}

		return docpager.Document(row)
	})
}
