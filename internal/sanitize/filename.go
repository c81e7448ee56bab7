package sanitize

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackPrefix starts every generated name.
const FallbackPrefix = "generated_"

// tokenLength is the number of random hex characters in a generated name.
const tokenLength = 10

// extraChars are the non-alphanumeric characters kept in a filename.
const extraChars = "-_.()'&! "

// separatorRun matches runs of hyphens and whitespace.
var separatorRun = regexp.MustCompile(`[-\s]+`)

// degenerate holds results that cannot be used as a filename on their own.
var degenerate = map[string]bool{
	"":   true,
	".":  true,
	"..": true,
	"-":  true,
}

// Filename maps raw to a filesystem-safe name.
//
// The input is percent-decoded and normalized. Without allowUnicode it is
// decomposed (NFKD) and reduced to ASCII, so "Café" becomes "cafe"; with
// allowUnicode it is composed (NFKC) and Unicode letters and digits are kept.
// The result is lowercased, spaces become hyphens, characters outside
// letters, digits and -_.()'&! are dropped and runs of hyphens collapse.
func Filename(raw string, allowUnicode bool) string {
	if raw == "" {
		return FallbackPrefix + token()
	}

	value := unquote(raw)
	if allowUnicode {
		value = norm.NFKC.String(value)
	} else {
		value = toASCII(value)
	}

	value = cases.Lower(language.Und).String(value)
	value = strings.ReplaceAll(strings.TrimSpace(value), " ", "-")

	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if isAllowed(r, allowUnicode) {
			b.WriteRune(r)
		}
	}

	output := separatorRun.ReplaceAllString(b.String(), "-")
	output = strings.Trim(output, "-")

	if stem, _, _ := strings.Cut(output, "."); stem == "" {
		output = FallbackPrefix + token() + output
	}
	if degenerate[output] {
		output = FallbackPrefix + token()
	}
	return output
}

// HostDir returns the directory name used for files downloaded from seedURL:
// the host (port included) without a leading "www.", passed through Filename.
func HostDir(seedURL string, allowUnicode bool) string {
	var host string
	if u, err := url.Parse(seedURL); err == nil {
		host = u.Host
	}
	host = strings.TrimPrefix(host, "www.")
	return Filename(host, allowUnicode)
}

// IsGenerated reports whether name came from the random fallback branch.
func IsGenerated(name string) bool {
	return strings.HasPrefix(name, FallbackPrefix)
}

func isAllowed(r rune, allowUnicode bool) bool {
	if r < unicode.MaxASCII+1 {
		return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') ||
			('0' <= r && r <= '9') || strings.ContainsRune(extraChars, r)
	}
	return allowUnicode && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// toASCII decomposes s and removes everything outside ASCII, leaving the
// base letters of accented characters.
func toASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(func(r rune) bool {
		return r > unicode.MaxASCII
	})))
	out, _, err := transform.String(t, s)
	if err != nil {
		return ""
	}
	return out
}

// unquote decodes valid %XX escapes and leaves malformed ones untouched.
// url.PathUnescape rejects the whole string on a single bad escape, which
// would throw away an otherwise usable name.
func unquote(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// token returns a short random string for fallback names.
func token() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:tokenLength]
}
