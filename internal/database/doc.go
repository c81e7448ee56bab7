// Package database stores the history of crawl runs in SQLite.
//
// Every run is saved with its totals, its per-link download outcomes and
// the final failure log, so past runs can be listed and their failures
// inspected with "pgnscraper history". The pure-Go modernc.org/sqlite
// driver is used, so no cgo toolchain is required.
package database
