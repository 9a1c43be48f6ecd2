// Package mgostore serves pages from a MongoDB collection through mgo.
//
// Plain sorts run as a find with sort, projection and limit. Sorts with a
// case-insensitive column run as an aggregation that first computes the
// folded copy of each such column, since find cannot sort on an expression.
package mgostore

import (
	"context"
	"errors"
	"fmt"

	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"

	"github.com/Alp4ka/docpager"
)

var _ docpager.Store = (*Store)(nil)

type Store struct {
	coll    *mgo.Collection
	idField string
}

// New returns a store over coll. Every call runs on a copy of the
// collection's session.
func New(coll *mgo.Collection, idField string) *Store {
	return &Store{
		coll:    coll,
		idField: idField,
	}
}

func (s *Store) session() (*mgo.Collection, func()) {
	sess := s.coll.Database.Session.Copy()

	return s.coll.With(sess), sess.Close
}

func (s *Store) Find(ctx context.Context, q docpager.Query) ([]docpager.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coll, closeSession := s.session()
	defer closeSession()

	var docs []docpager.Document

	if q.Sort.HasCaseInsensitive() {
		if err := coll.Pipe(BuildPipeline(q)).All(&docs); err != nil {
			return nil, err
		}

		return docs, nil
	}

	if err := buildFind(q).query(coll).All(&docs); err != nil {
		return nil, err
	}

	return docs, nil
}

func (s *Store) Lookup(ctx context.Context, id any, fields []string) (docpager.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	coll, closeSession := s.session()
	defer closeSession()

	var (
		doc docpager.Document
		err error
	)

	plain, folded := docpager.SplitFoldedFields(fields)
	if len(folded) > 0 {
		err = coll.Pipe(BuildLookupPipeline(s.idField, id, plain, folded)).One(&doc)
	} else {
		query := coll.Find(bson.M{s.idField: id})
		if projection := docpager.Include(plain...); projection != nil {
			query = query.Select(projection.ToBSON())
		}

		err = query.One(&doc)
	}

	if err != nil {
		return nil, s.lookupError(err, id)
	}

	return doc, nil
}

func (s *Store) lookupError(err error, id any) error {
	if errors.Is(err, mgo.ErrNotFound) {
		return fmt.Errorf("%w: %s = %v", docpager.ErrNotFound, s.idField, id)
	}

	return err
}

// findSpec is the find command a query without folded columns runs as.
type findSpec struct {
	filter     bson.M
	sort       []string
	projection bson.M
	limit      int
}

func buildFind(q docpager.Query) findSpec {
	return findSpec{
		filter:     q.Filter.ToBSON(),
		sort:       q.Sort.ToMgoSort(),
		projection: q.Projection.ToBSON(),
		limit:      max(q.Limit, 0),
	}
}

func (f findSpec) query(coll *mgo.Collection) *mgo.Query {
	query := coll.Find(f.filter).Sort(f.sort...)
	if f.projection != nil {
		query = query.Select(f.projection)
	}
	if f.limit > 0 {
		query = query.Limit(f.limit)
	}

	return query
}

// BuildPipeline renders q as an aggregation pipeline:
//
//	$addFields (folded copies) → $match → $sort → $limit → $project
//
// A folded copy keeps non-string values as they are, so null and absent
// values stay in the null bucket instead of folding to "". The copies are
// returned with the rows; cursors are built from them.
func BuildPipeline(q docpager.Query) []bson.M {
	folded := q.Sort.FoldedColumns()

	var pipeline []bson.M

	if len(folded) > 0 {
		pipeline = append(pipeline, addFoldedStage(folded))
	}

	if !q.Filter.IsEmpty() {
		pipeline = append(pipeline, bson.M{"$match": q.Filter.ToBSON()})
	}

	if len(q.Sort) > 0 {
		pipeline = append(pipeline, bson.M{"$sort": q.Sort.ToBSON()})
	}

	if q.Limit > 0 {
		pipeline = append(pipeline, bson.M{"$limit": q.Limit})
	}

	if project := projectStage(q.Projection, folded); len(project) > 0 {
		pipeline = append(pipeline, bson.M{"$project": project})
	}

	return pipeline
}

// BuildLookupPipeline renders a lookup by identity that also returns the
// folded copies of the folded columns.
func BuildLookupPipeline(idField string, id any, fields []string, folded []string) []bson.M {
	pipeline := []bson.M{
		{"$match": bson.M{idField: id}},
		addFoldedStage(folded),
	}

	if project := projectStage(docpager.Include(fields...), folded); len(project) > 0 {
		pipeline = append(pipeline, bson.M{"$project": project})
	}

	return append(pipeline, bson.M{"$limit": 1})
}

func addFoldedStage(folded []string) bson.M {
	fields := make(bson.M, len(folded))
	for _, column := range folded {
		fields[docpager.FoldedField(column)] = foldExpression(column)
	}

	return bson.M{"$addFields": fields}
}

func foldExpression(column string) bson.M {
	ref := "$" + column

	return bson.M{"$cond": bson.M{
		"if":   bson.M{"$eq": []any{bson.M{"$type": ref}, "string"}},
		"then": bson.M{"$toLower": ref},
		"else": ref,
	}}
}

// projectStage applies the requested projection. An inclusion projection
// keeps the folded copies explicitly.
func projectStage(projection docpager.Projection, folded []string) bson.M {
	ret := projection.ToBSON()
	if len(projection.Paths()) == 0 {
		return ret
	}

	for _, column := range folded {
		ret[docpager.FoldedField(column)] = 1
	}

	return ret
}
