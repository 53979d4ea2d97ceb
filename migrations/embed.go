// Package migrations embeds the clinical store schema so the server binary
// can run "migrate up" without a checkout.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
