package utils

import "regexp"

var dsnPasswordRegex = regexp.MustCompile(`(:)([^:@]+)(@)`)

// MaskDSN hides the password portion of a connection string for log output.
func MaskDSN(dsn string) string {
	return dsnPasswordRegex.ReplaceAllString(dsn, ":***@")
}

var secretTailRegex = regexp.MustCompile(`.{4}$`)

// MaskKey keeps only the last four characters of an API key visible.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + secretTailRegex.FindString(key)
}
