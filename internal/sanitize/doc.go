// Package sanitize turns untrusted strings such as URL path segments,
// Content-Disposition filenames and host names into names that are safe to
// use on any filesystem.
//
// Filename is total: it never fails and never returns an empty string.
// Inputs that collapse to nothing usable (".", "..", a bare extension)
// get a random "generated_" prefix, so two concurrent calls never produce
// the same fallback name.
package sanitize
