// internal/platform/validator/validator.go
package validator

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// URL validators

// fetchSchemes son los esquemas que los fetchers saben resolver.
var fetchSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"gs":    true,
}

// IsFetchURL verifica que la URL sea absoluta y de un esquema soportado
// por los fetchers (http, https o gs).
func IsFetchURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	if !fetchSchemes[strings.ToLower(u.Scheme)] {
		return false
	}
	return u.Host != ""
}

// IsGSURL verifica si la URL apunta a un objeto de un bucket (gs://).
func IsGSURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, "gs") && u.Host != "" && strings.TrimPrefix(u.Path, "/") != ""
}

// Identifier validators

var identRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// IsIdent verifica que un identificador sea seguro como nombre de
// archivo (descriptors se persisten como <id>.json).
func IsIdent(id string) bool {
	return len(id) <= 128 && identRegex.MatchString(id)
}

// Path validators

// IsSafeRelPath verifies that p is a clean relative path that stays
// inside its base directory: not absolute, not empty, no traversal.
// Archive entries and descriptor subpaths must pass this check before
// they are joined to any local directory.
func IsSafeRelPath(p string) bool {
	if p == "" {
		return false
	}
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return false
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." {
		return false
	}
	if strings.HasPrefix(cleaned, "../") {
		return false
	}
	// Windows drive-letter style prefixes also escape the base.
	if len(cleaned) >= 2 && cleaned[1] == ':' {
		return false
	}
	return true
}

// NormalizeRelPath limpia un path relativo a su forma canónica slash.
func NormalizeRelPath(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	return path.Clean(strings.TrimPrefix(p, "./"))
}
