// Package pipeline drives a crawl run.
//
// Each seed passes through a Pipeline of Steps: DiscoverStep finds the
// candidate links and DownloadStep hands them to the download pool. The
// Driver runs seeds one after another, stops starting new seeds once the
// context is cancelled, and finally writes the failure list.
package pipeline
