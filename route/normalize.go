package route

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// normalizer lowercases and strips combining marks so that accented and
// unaccented spellings of the same word compare equal ("matemática"
// becomes "matematica"). Safe for concurrent use; transform.String
// allocates its own state per call.
var normalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize folds a query or keyword into its canonical matching form.
func Normalize(s string) string {
	out, _, err := transform.String(normalizer, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}
