// Package envutil holds the environment plumbing shared by everything
// that spawns toolchain subprocesses.
package envutil

import "strings"

// Merge returns base with every key in overrides replaced or appended.
func Merge(base []string, overrides map[string]string) []string {
	idx := make(map[string]int, len(base))
	for i, kv := range base {
		if k, _, ok := strings.Cut(kv, "="); ok {
			idx[k] = i
		}
	}
	for k, v := range overrides {
		if i, ok := idx[k]; ok {
			base[i] = k + "=" + v
		} else {
			base = append(base, k+"="+v)
		}
	}
	return base
}
