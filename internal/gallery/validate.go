package gallery

import (
	"net/url"
	"strings"
)

// ValidateFilename percent-decodes raw, as received in a URL path segment,
// and rejects anything that could escape the gallery root. The decoded name
// is returned.
func ValidateFilename(raw string) (string, error) {
	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", &ValidationError{Filename: raw, Reason: "malformed percent-encoding"}
	}
	if err := CheckFilename(name); err != nil {
		return "", err
	}
	return name, nil
}

// CheckFilename applies the same rules as ValidateFilename to a name that is
// already decoded, such as a multipart upload filename.
func CheckFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &ValidationError{Filename: name, Reason: "empty"}
	case strings.Contains(name, ".."):
		return &ValidationError{Filename: name, Reason: "contains .."}
	case strings.ContainsAny(name, `/\`):
		return &ValidationError{Filename: name, Reason: "contains a path separator"}
	case strings.ContainsRune(name, 0):
		return &ValidationError{Filename: name, Reason: "contains NUL"}
	}
	return nil
}
