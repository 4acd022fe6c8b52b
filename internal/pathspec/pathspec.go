// Package pathspec translates a subdirectory and a list of user-supplied
// filters into the parallel source/target path lists used to scope every
// git log, diff-tree, and apply invocation performed by the sync engine.
package pathspec

import "strings"

// magicPrefixes are the git pathspec "magic" prefixes that must be
// preserved verbatim ahead of the translated path.
var magicPrefixes = []string{":^", ":!", ":/", ":("}

// Dir is a normalized subdirectory: either "./" for the repository root,
// or a path ending in "/". It may carry a "#<alias>" suffix, which names
// the directory for use by external configuration but plays no role in
// path translation itself.
type Dir struct {
	// Path is the normalized subdirectory, e.g. "./" or "pkg/foo/".
	Path string

	// Alias is the "#<name>" suffix, if any, with the "#" stripped.
	Alias string
}

// ParseDir normalizes a user-supplied subdirectory.
//
// "##" sequences are unescaped to a literal "#". A trailing "#<name>"
// names an alias and is removed from Path. The result always ends in
// "/"; the root directory is represented as "./".
func ParseDir(raw string) Dir {
	var alias string
	if idx := aliasIndex(raw); idx >= 0 {
		alias = raw[idx+1:]
		raw = raw[:idx]
	}
	raw = unescapeHash(raw)

	raw = strings.Trim(raw, "/")
	if raw == "" || raw == "." {
		return Dir{Path: "./", Alias: alias}
	}
	return Dir{Path: raw + "/", Alias: alias}
}

// unescapeHash replaces every "##" with a single "#".
func unescapeHash(s string) string {
	return strings.ReplaceAll(s, "##", "#")
}

// aliasIndex finds the index of the first "#" that is not part of an
// escaped "##" pair, or -1 if there is none. That "#" introduces the
// alias suffix.
func aliasIndex(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != '#' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '#' {
			i++ // escaped "##"
			continue
		}
		return i
	}
	return -1
}

// IsRoot reports whether d refers to the repository root.
func (d Dir) IsRoot() bool {
	return d.Path == "./"
}

// Translate converts a pair of normalized directories and a list of
// filter pathspecs into parallel source and target path lists.
//
// When filters is empty, the directory itself becomes the sole path on
// each side. Otherwise, each filter's pathspec-magic prefix (one of
// ":^", ":!", ":/", ":(attr)") is preserved and its tail is prefixed
// with the respective directory.
func Translate(source, target Dir, filters []string) (sourcePaths, targetPaths []string) {
	if len(filters) == 0 {
		return []string{source.Path}, []string{target.Path}
	}

	sourcePaths = make([]string, len(filters))
	targetPaths = make([]string, len(filters))
	for i, filter := range filters {
		prefix, tail := splitMagic(filter)
		sourcePaths[i] = prefix + joinDir(source.Path, tail)
		targetPaths[i] = prefix + joinDir(target.Path, tail)
	}
	return sourcePaths, targetPaths
}

// splitMagic separates a pathspec-magic prefix from the remainder of a
// filter. If no recognized prefix is present, the whole filter is the
// tail and the prefix is empty.
func splitMagic(filter string) (prefix, tail string) {
	for _, m := range magicPrefixes {
		if strings.HasPrefix(filter, m) {
			rest := filter[len(m):]
			if m == ":(" {
				// ":(attr)path" — the magic extends through the
				// closing paren.
				if end := strings.IndexByte(rest, ')'); end >= 0 {
					return filter[:len(m)+end+1], rest[end+1:]
				}
			}
			return m, rest
		}
	}
	return "", filter
}

func joinDir(dir, tail string) string {
	tail = strings.TrimPrefix(tail, "/")
	if dir == "./" {
		return tail
	}
	return dir + tail
}

// Args builds the trailing "-- <paths>" portion of a git command for the
// given path list, per the root-omission rule: when paths is a single
// "./" entry, the terminator is omitted entirely so that root-scoped
// logs are not artificially restricted (and so merge commits with an
// empty diff against their first parent are not dropped by a path
// filter). Any other path list is always passed through "--", even a
// single path, since git treats a bare path after the refs ambiguously.
func Args(paths []string) []string {
	if len(paths) == 1 && paths[0] == "./" {
		return nil
	}
	args := make([]string, 0, len(paths)+1)
	args = append(args, "--")
	args = append(args, paths...)
	return args
}
