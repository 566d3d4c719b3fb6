package remotesync

import (
	"slices"
	"strconv"
	"strings"
)

// CompareVersions compares dotted numeric versions: 1 when remote is newer,
// -1 when older, 0 when equal. Non-numeric segments are ignored; a version
// with no numeric segment at all, such as "" or "garbage", compares as equal.
func CompareVersions(remote, local string) int {
	r, ok := parseVersion(remote)
	if !ok {
		return 0
	}
	l, ok := parseVersion(local)
	if !ok {
		return 0
	}
	return slices.Compare(r, l)
}

func parseVersion(v string) ([]int, bool) {
	var out []int
	for _, seg := range strings.Split(v, ".") {
		if !isDigits(seg) {
			continue
		}
		n, err := strconv.Atoi(seg)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
