// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

package lineprof

import (
	"bufio"
	"sync"

	"github.com/spf13/afero"
)

// SourceProvider is C2: (path) -> line count, (path, lineno) -> text,
// cached by path. Files that can't be read from disk render as empty
// lines rather than failing the whole report (§4.2, §7).
type SourceProvider struct {
	fs afero.Fs

	mu    sync.Mutex
	cache map[string][]string
}

// NewSourceProvider builds a SourceProvider backed by fs. Production
// callers pass afero.NewOsFs(); tests pass afero.NewMemMapFs(). The
// synthetic-content hook of §4.2 ("a hook lets the embedding code supply
// synthetic content keyed by a file path") is just overlaying fs with
// afero.NewCopyOnWriteFs(fs, overlay) before constructing the provider,
// since afero already models exactly that layering.
func NewSourceProvider(fs afero.Fs) *SourceProvider {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &SourceProvider{fs: fs, cache: make(map[string][]string)}
}

// Exists reports whether path can currently be read.
func (p *SourceProvider) Exists(path string) bool {
	ok, err := afero.Exists(p.fs, path)
	return err == nil && ok
}

func (p *SourceProvider) load(path string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lines, ok := p.cache[path]; ok {
		return lines
	}
	var lines []string
	f, err := p.fs.Open(path)
	if err == nil {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
	}
	p.cache[path] = lines
	return lines
}

// Lines returns the full file as a 1-indexed-by-convention line list (the
// slice itself is 0-indexed; callers use Line for 1-based access). Missing
// source yields an empty (non-nil-checked) slice, per §4.2's failure mode.
func (p *SourceProvider) Lines(path string) []string {
	return p.load(path)
}

// LineCount returns the number of lines available for path.
func (p *SourceProvider) LineCount(path string) int {
	return len(p.load(path))
}

// Line returns the 1-based lineno of path, or "" if it is out of range or
// the source could not be read (§4.2's failure mode: "rendered as an
// empty line; profiling data is still emitted").
func (p *SourceProvider) Line(path string, lineno int) string {
	lines := p.load(path)
	if lineno < 1 || lineno > len(lines) {
		return ""
	}
	return lines[lineno-1]
}
