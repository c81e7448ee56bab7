// Package main provides the entry point for the pgnscraper CLI.
//
// pgnscraper crawls web pages that publish chess game collections and
// downloads every linked game file (.pgn, .zip, .cbv, .si4, ...). Transient
// failures are retried; URLs that never succeed are listed in failed_urls.
//
// Usage:
//
//	pgnscraper crawl [seed-url...]
//	pgnscraper history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
