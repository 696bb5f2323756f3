package models

import "strings"

// Field paths join object keys with '.'. Dots and backslashes inside a key
// are escaped with a backslash, so "price.usd" as a single key becomes
// `price\.usd` and never collides with the nested path price -> usd.

// JoinPath appends key to parent, escaping key.
func JoinPath(parent, key string) string {
	escaped := escapeKey(key)
	if parent == "" {
		return escaped
	}
	return parent + "." + escaped
}

func escapeKey(key string) string {
	if !strings.ContainsAny(key, `.\`) {
		return key
	}
	var b strings.Builder
	b.Grow(len(key) + 2)
	for i := 0; i < len(key); i++ {
		if key[i] == '.' || key[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(key[i])
	}
	return b.String()
}

// SplitPath returns the unescaped keys of a field path.
func SplitPath(path string) []string {
	if !strings.Contains(path, `\`) {
		return strings.Split(path, ".")
	}
	var (
		parts []string
		cur   strings.Builder
	)
	for i := 0; i < len(path); i++ {
		switch c := path[i]; {
		case c == '\\' && i+1 < len(path):
			i++
			cur.WriteByte(path[i])
		case c == '.':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(parts, cur.String())
}

// LastPathKey returns the unescaped final key of a path, ignoring a trailing
// array element marker.
func LastPathKey(path string) string {
	parts := SplitPath(strings.TrimSuffix(path, "[]"))
	return parts[len(parts)-1]
}

// SlashPathToField converts a Cosmos DB style "/a/b" path into a field path.
// Each segment is one key, so "/price.usd" names the dotted key itself.
func SlashPathToField(p string) string {
	p = strings.Trim(p, "/ ")
	if p == "" {
		return ""
	}
	var path string
	for _, seg := range strings.Split(p, "/") {
		path = JoinPath(path, seg)
	}
	return path
}
