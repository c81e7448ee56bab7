// Package report renders the results of a crawl run.
//
// Formats:
//   - failure list: the plain-text "failed_urls" file, one URL per line
//   - simple: a short human-readable summary for the terminal
//   - markdown: a summary document with tables and a mermaid chart
//   - json: the complete RunReport for tooling
package report
