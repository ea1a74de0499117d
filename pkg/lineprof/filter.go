// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

import (
	"path/filepath"
	"strings"
)

// Filter implements C9: it decides, per file path, whether a site should be
// traced (gating C4/C5 writes) and whether a file should appear in a report
// (gating C6's output). Both questions are answered by the same Tracked
// call; the aggregator and the tracer both consult it, per §4.6 and §4.9.
type Filter struct {
	includes  []string
	excludes  []string
	syspaths  []string
	excludeOS bool
}

// NewFilter builds a Filter from normalized include/exclude prefixes and a
// set of interpreter standard-library directories to exclude when
// excludeSysPath is true (the --exclude-syspath flag, §6).
func NewFilter(includes, excludes, sysPaths []string, excludeSysPath bool) *Filter {
	f := &Filter{excludeOS: excludeSysPath}
	for _, p := range includes {
		f.includes = append(f.includes, normalizePath(p))
	}
	for _, p := range excludes {
		f.excludes = append(f.excludes, normalizePath(p))
	}
	for _, p := range sysPaths {
		f.syspaths = append(f.syspaths, normalizePath(p))
	}
	return f
}

// normalizePath makes path comparisons robust to relative vs absolute
// inputs and OS separator differences, per §4.9 ("absolute,
// separator-normalized").
func normalizePath(p string) string {
	p = filepath.ToSlash(p)
	if abs, err := filepath.Abs(p); err == nil {
		return filepath.ToSlash(abs)
	}
	return p
}

func hasPrefix(path string, prefixes []string) bool {
	np := normalizePath(path)
	for _, p := range prefixes {
		if strings.HasPrefix(np, p) {
			return true
		}
	}
	return false
}

// Tracked implements the include → exclude → syspath evaluation order of
// §4.9: a later rule overrides an earlier one only by narrowing, never by
// re-admitting a path an earlier rule rejected.
func (f *Filter) Tracked(path string) bool {
	if len(f.includes) > 0 && !hasPrefix(path, f.includes) {
		return false
	}
	if hasPrefix(path, f.excludes) {
		return false
	}
	if f.excludeOS && hasPrefix(path, f.syspaths) {
		return false
	}
	return true
}

// AllowAllFilter is the permissive default used when no include/exclude
// rules are configured.
func AllowAllFilter() *Filter {
	return NewFilter(nil, nil, nil, false)
}
