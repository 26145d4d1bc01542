package schema

import (
	"net/mail"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// formats maps the supported "format" names to their checks.
var formats = map[string]func(string) bool{
	"email":     isEmail,
	"uuid":      isUUID,
	"date-time": isDateTime,
	"date":      isDate,
	"uri":       isURI,
}

// CheckFormat reports whether s satisfies the named format. Unknown names
// report false.
func CheckFormat(name, s string) bool {
	check, ok := formats[name]
	return ok && check(s)
}

// KnownFormat reports whether name is a supported "format" value.
func KnownFormat(name string) bool {
	_, ok := formats[name]
	return ok
}

func isEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Name == "" && addr.Address == s
}

// isUUID accepts only the canonical hyphenated form.
func isUUID(s string) bool {
	return len(s) == 36 && uuid.Validate(s) == nil
}

func isDateTime(s string) bool {
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

func isDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func isURI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != "" || u.Path != "")
}
