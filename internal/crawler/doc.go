// Package crawler discovers chess data-file links on seed pages.
//
// Discovery is one level deep: the seed page itself plus the documents of
// its frame and iframe elements. Nothing else is followed.
//
//   - ExtractFileLinks scans anchors with the x/net/html tokenizer and keeps
//     hrefs ending in a known archive extension
//   - FrameSources lists frame and iframe sources with the same tokenizer
//   - PageTitle reads the page title using goquery
//   - Fetcher performs the GET requests, decodes pages to UTF-8 and records
//     discovery failures in the shared FailureLog
//
// Usage:
//
//	f := crawler.NewFetcher(client, failures, crawler.WithLogger(logger))
//	links := f.FetchAndDiscover(ctx, "https://www.pgnmentor.com/files.html")
package crawler
