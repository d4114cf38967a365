package source

import (
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ShimSuffix marks the synthetic per-component type-check files.
const ShimSuffix = ".ngtypecheck.ts"

// NormalizePath returns the cache-key form of a path: absolute, cleaned,
// forward slashes, Unicode NFC. Cross-build lookups rely on it.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	if !isAbs(p) {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
	}
	p = filepath.ToSlash(filepath.Clean(p))
	return norm.NFC.String(p)
}

// isAbs treats already-normalized POSIX paths as absolute on every OS.
func isAbs(p string) bool {
	return filepath.IsAbs(p) || strings.HasPrefix(p, "/")
}

// FileURI returns the identifier used for the emitted-output cache.
func FileURI(p string) string {
	p = NormalizePath(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // C:/x -> /C:/x
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// IsDeclarationFile reports whether p is a .d.ts-style declaration file.
func IsDeclarationFile(p string) bool {
	base := strings.ToLower(filepath.Base(p))
	return strings.HasSuffix(base, ".d.ts") || strings.HasSuffix(base, ".d.mts") || strings.HasSuffix(base, ".d.cts")
}

// IsShim reports whether p names a type-check shim.
func IsShim(p string) bool {
	return strings.HasSuffix(p, ShimSuffix)
}

// ShimFor returns the shim path of a component source file.
func ShimFor(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ShimSuffix
}

// OriginalOfShim strips the shim suffix: a.ngtypecheck.ts -> a.ts.
func OriginalOfShim(p string) (string, bool) {
	if !IsShim(p) {
		return "", false
	}
	return strings.TrimSuffix(p, ShimSuffix) + ".ts", true
}

// Rel renders p relative to base for messages; falls back to p.
func Rel(base, p string) string {
	r, err := filepath.Rel(filepath.FromSlash(base), filepath.FromSlash(p))
	if err != nil {
		return p
	}
	return filepath.ToSlash(r)
}
