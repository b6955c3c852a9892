// Package assets embeds the files shipped with the binaries: database migrations,
// email templates and the list of common passwords.
package assets

import "embed"

//go:embed migrations/*.sql templates/email/* common-passwords.txt.gz
var FS embed.FS

// MigrationsDir is the directory of FS holding the goose migrations.
const MigrationsDir = "migrations"
