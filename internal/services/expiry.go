package services

import (
	"errors"
	"strings"
)

// expiredDescription is matched case-sensitively against error_description.
const expiredDescription = "access token expired"

// ExpiryDetector recognizes Spotify's "access token expired" challenge.
type ExpiryDetector struct{}

// IsTokenExpired reports whether err carries a WWW-Authenticate challenge whose
// error_description says the access token expired. Other 401s (revoked or malformed
// tokens) are not expiry.
func (ExpiryDetector) IsTokenExpired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Header == nil {
		return false
	}

	for _, challenge := range apiErr.Header.Values("WWW-Authenticate") {
		_, params := ParseChallenge(challenge)
		if strings.Contains(params["error_description"], expiredDescription) {
			return true
		}
	}
	return false
}

// ParseChallenge splits a single WWW-Authenticate challenge into its scheme and
// auth-params. Quoted values may contain commas and backslash escapes. Param names are
// lowercased; values are returned verbatim.
func ParseChallenge(header string) (scheme string, params map[string]string) {
	params = make(map[string]string)
	header = strings.TrimSpace(header)

	scheme, rest, _ := strings.Cut(header, " ")
	if strings.Contains(scheme, "=") {
		scheme, rest = "", header
	}

	for {
		rest = strings.TrimLeft(rest, " ,")
		if rest == "" {
			return scheme, params
		}

		name, after, ok := strings.Cut(rest, "=")
		if !ok {
			return scheme, params
		}
		name = strings.ToLower(strings.TrimSpace(name))
		after = strings.TrimLeft(after, " ")

		var value string
		value, rest = readParamValue(after)
		params[name] = value
	}
}

// readParamValue reads a token or quoted-string from the start of s and returns it with
// the unread remainder.
func readParamValue(s string) (string, string) {
	if !strings.HasPrefix(s, `"`) {
		value, rest, _ := strings.Cut(s, ",")
		return strings.TrimSpace(value), rest
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:]
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), ""
}
