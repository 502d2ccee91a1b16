// Package migrations carries the schema for both backends compiled into
// the binary, so a fresh database can be prepared without shipping SQL
// files alongside it.
package migrations

import "embed"

// PostgresFS holds the PostgreSQL schema, one idempotent file per table.
//
//go:embed postgres/*.sql
var PostgresFS embed.FS

// ClickhouseFS holds the ClickHouse schema, one statement per file.
//
//go:embed clickhouse/*.sql
var ClickhouseFS embed.FS
