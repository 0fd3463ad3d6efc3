package statsd

import (
	"sort"
	"strconv"
	"strings"
)

func sanitizePrefix(prefix string) string {
	p := strings.TrimSpace(prefix)
	p = strings.Trim(p, ".")
	return p
}

// NormalizeMetricName trims a dotted metric name and replaces characters that
// break the line protocol.
func NormalizeMetricName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	n = strings.ReplaceAll(n, " ", "_")
	n = strings.ReplaceAll(n, "/", "_")
	n = strings.ReplaceAll(n, ":", "_")
	n = strings.ReplaceAll(n, "|", "_")
	for strings.Contains(n, "..") {
		n = strings.ReplaceAll(n, "..", ".")
	}
	return strings.Trim(n, ".")
}

// MergeTags combines global and local tags, trimming keys and values and
// dropping empty keys. Local tags win on conflict.
func MergeTags(global, local map[string]string) map[string]string {
	merged := make(map[string]string, len(global)+len(local))
	for _, src := range []map[string]string{global, local} {
		for k, v := range src {
			if key := strings.TrimSpace(k); key != "" {
				merged[key] = strings.TrimSpace(v)
			}
		}
	}
	return merged
}

// SortedKeys returns the tag keys in lexical order.
func SortedKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatTags(global, local map[string]string) string {
	merged := MergeTags(global, local)
	if len(merged) == 0 {
		return ""
	}
	keys := SortedKeys(merged)
	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = k + ":" + merged[k]
	}
	return "|#" + strings.Join(values, ",")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
