// Package pgstore implements the tracking store on PostgreSQL through pgx.
//
// Pass a *pgxpool.Pool (or a pgx.Tx) as DB. Call EnsureSchema once, or apply
// Schema with your migration tool. Rows are not removed when they expire;
// schedule PurgeExpired.
package pgstore
