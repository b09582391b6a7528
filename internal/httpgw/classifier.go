package httpgw

import "strings"

// Tag names a request's handler.
type Tag string

const (
	TagDynamic     Tag = "dynamic"
	TagSmooth      Tag = "smooth"
	TagLive        Tag = "live"
	TagProgressive Tag = "progressive"
	TagInternal    Tag = "internal"
	TagNone        Tag = "none"
)

// Classify maps a request path to a handler tag and the stream name it
// names, if any (§4.1). Order matters: the checks below run in the order
// the table lists them, since a path could otherwise match more than one
// shape (e.g. an .ism path also ending in a segment that looks like a
// stream name).
func Classify(path string) (Tag, string) {
	if strings.Contains(path, "f4m") || (strings.Contains(path, "Seg") && strings.Contains(path, "Frag")) {
		return TagDynamic, sanitize(firstSegment(path))
	}

	if strings.Contains(path, "/smooth/") && strings.Contains(path, ".ism") {
		return TagSmooth, sanitize(stripISM(segmentAfter(path, "/smooth/")))
	}

	if strings.Contains(path, "/hls/") && (strings.Contains(path, ".m3u") || strings.Contains(path, ".ts")) {
		return TagLive, sanitize(segmentAfter(path, "/hls/"))
	}

	if strings.HasSuffix(path, ".flv") || strings.HasSuffix(path, ".mp3") {
		return TagProgressive, sanitize(basenameWithoutExt(path))
	}

	if path == "/crossdomain.xml" || path == "/clientaccesspolicy.xml" {
		return TagInternal, ""
	}

	if name, ok := stripPrefixSuffix(path, "/embed_", ".js"); ok {
		return TagInternal, sanitize(name)
	}
	if name, ok := stripPrefixSuffix(path, "/info_", ".js"); ok {
		return TagInternal, sanitize(name)
	}

	return TagNone, ""
}

func firstSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

func segmentAfter(path string, marker string) string {
	i := strings.Index(path, marker)
	if i < 0 {
		return ""
	}
	rest := path[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return rest[:j]
	}
	return rest
}

func stripISM(name string) string {
	if i := strings.Index(name, ".ism"); i >= 0 {
		return name[:i]
	}
	return name
}

func basenameWithoutExt(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

func stripPrefixSuffix(path, prefix, suffix string) (string, bool) {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i:]
	}
	if !strings.HasPrefix(base, prefix) || !strings.HasSuffix(base, suffix) {
		return "", false
	}
	return base[len(prefix) : len(base)-len(suffix)], true
}

// sanitize lowercases name and replaces every rune outside [a-z0-9_] with
// '_', matching the convention used for backend stream arguments and pool
// keys throughout.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
