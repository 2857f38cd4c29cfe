// Package migrations embeds the SQL migrations for the values database.
package migrations

import "embed"

const ValuesDir = "valuesdb"

//go:embed valuesdb/*.sql
var FS embed.FS
