// Package docpager provides stable, bidirectional keyset ("seek") pagination
// over sorted document stores.
//
// Overview
//
// Instead of numeric offsets, pages are addressed with opaque cursors that
// encode the sort key of a boundary document. Walking forward or backward
// from a cursor is a range query, so pages stay consistent while the
// collection is scanned and every page is served by an index seek.
//
// Key concepts
//   - Orderings: the requested sort. The identity field is appended as a
//     final tie-break so that no two documents ever compare equal.
//   - Cursor: an opaque, URL-safe token holding one value per ordering
//     column. Null and absent fields are kept apart in the token but share
//     one bucket in the order.
//   - Synthesize: turns orderings, a direction and a cursor into a Filter (a
//     DNF of conjuncts) plus the store sort. Filters render to gorm clauses,
//     raw SQL, BSON, or are matched in memory.
//   - AssemblePage: turns the fetched rows (limit plus one peek row) into a
//     Page with next/previous cursors and has-more flags.
//   - ResolveProjection: narrows requested fields against a whitelist and
//     guarantees the sort fields are fetched.
//   - CursorPager: ties everything together against a Store.
//
// Store adapters live under store/: memstore, boltstore, gormstore and
// mgostore.
package docpager
