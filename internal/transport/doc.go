// Package transport builds the single *http.Client shared by every page and
// file request of a run.
//
// The client carries the session state the crawler relies on:
//   - a fixed browser-like header set, injected by HeaderTransport on every
//     request including frame fetches and redirects
//   - per-host extra headers and cookies from the configuration file
//   - a cookie jar scoped with the public suffix list
//   - an optional request rate limit
//   - optional routing through a SOCKS5 proxy, either an external one or an
//     embedded Tor daemon started with tornago
//
// *http.Client and *http.Transport are safe for concurrent use, so download
// workers share the client without any locking at the call site.
package transport
