// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2024-present Datadog, Inc.

// Package run implements `lineprof run`, the CLI surface described in
// spec.md §6. A real host-interpreter launcher is explicitly out of scope
// (§1): this command drives one of the bundled internal/scriptvm demo
// programs as its "target" instead of loading an external file or module,
// so every flag in §6's options table still has somewhere to land.
package run

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	intcfg "github.com/DataDog/dd-line-profiler/internal/config"
	"github.com/DataDog/dd-line-profiler/internal/scriptvm"
	"github.com/DataDog/dd-line-profiler/pkg/lineprof"
	"github.com/DataDog/dd-line-profiler/pkg/lineprof/report"
)

// newSyntheticSource builds a SourceLookup over an in-memory file holding
// content at path, the synthetic-content path §4.2 describes for
// embedders whose source isn't reachable through a normal file read.
func newSyntheticSource(path, content string) report.SourceLookup {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, path, []byte(content), 0o644)
	return lineprof.NewSourceProvider(fs)
}

// ExitError carries a target program's exit code through cobra's error
// path (§7: "the profiler must not swallow [target-program errors]; it
// surfaces the target's exit code"). The bundled demo programs never fail,
// so no code path in this repository constructs one yet; it exists so a
// real launcher, if one is ever wired in, has somewhere to report through.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("target exited %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("target exited %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Options collects every flag in §6's options table plus the
// SPEC_FULL.md demo-program selector.
type Options struct {
	Out            string
	Format         string
	Threads        int
	StatisticSec   float64
	Include        []string
	Exclude        []string
	ExcludeSysPath bool
	Program        string // stands in for §6's `-m <module>`
	Zipfile        string
	FibN           int
	Duration       time.Duration
	ConfigName     string
	ConfigPath     []string

	// SysPaths is config-file-only: it has no flag counterpart and is
	// populated from .lineprof.yaml's filter.syspaths, falling back to
	// defaultSysPaths() when the file doesn't set it.
	SysPaths []string
}

// NewCommand builds the `run` subcommand.
func NewCommand(log *zap.SugaredLogger) *cobra.Command {
	opts := &Options{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Profile one of the bundled demo programs and emit a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			applyConfigDefaults(cmd, opts)
			return Execute(log, opts, args, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Out, "out", "o", "", "Redirect output to file (default: stdout)")
	flags.StringVar(&opts.Format, "format", "text", "Output format: text, callgrind, callgrindzip")
	flags.IntVar(&opts.Threads, "threads", 1, "0 = only current thread, 1 = propagate to spawned threads")
	flags.Float64Var(&opts.StatisticSec, "statistic", 0, "Switch to the statistical sampler at this period, in seconds")
	flags.StringArrayVar(&opts.Include, "include", nil, "Add include rule (repeatable)")
	flags.StringArrayVar(&opts.Exclude, "exclude", nil, "Add exclude rule (repeatable)")
	flags.BoolVar(&opts.ExcludeSysPath, "exclude-syspath", false, "Add standard library directories to excludes")
	flags.StringVarP(&opts.Program, "module", "m", "fib", "Demo program to run: fib, sleeper, busyloop")
	flags.StringVar(&opts.Zipfile, "zipfile", "", "Emit a companion archive of source files alongside the profile")
	flags.IntVar(&opts.FibN, "fib-n", 10, "Argument to the fib demo program")
	flags.DurationVar(&opts.Duration, "duration", 200*time.Millisecond, "Run time for the sleeper/busyloop demo programs")
	flags.StringVar(&opts.ConfigName, "config-name", ".lineprof", "Config file base name (without extension)")
	flags.StringArrayVar(&opts.ConfigPath, "config-path", []string{"."}, "Directory to search for the config file (repeatable)")

	return cmd
}

// applyConfigDefaults loads the .lineprof.yaml defaults and uses them to
// fill in every flag the caller did not explicitly pass on the command
// line, implementing SPEC_FULL.md's "file supplies defaults ... before
// flags are applied" precedence: an explicit flag always wins, and the
// config file only ever fills gaps a flag left at its zero value. With no
// file present, the flags' own zero-value defaults stand: intcfg.Load
// backfills missing keys with its own baseline (§6's documented 1ms
// sampler period) even when nothing was found on disk, so this only asks
// it for values once a file genuinely exists to source them from.
func applyConfigDefaults(cmd *cobra.Command, opts *Options) {
	if !configFileExists(opts.ConfigName, opts.ConfigPath) {
		return
	}
	defaults, err := intcfg.Load(opts.ConfigName, opts.ConfigPath)
	if err != nil {
		return
	}

	flags := cmd.Flags()
	if !flags.Changed("include") {
		opts.Include = defaults.Filter.Include
	}
	if !flags.Changed("exclude") {
		opts.Exclude = defaults.Filter.Exclude
	}
	if !flags.Changed("exclude-syspath") {
		opts.ExcludeSysPath = defaults.Filter.ExcludeSysPath
	}
	if !flags.Changed("threads") && !defaults.PropagateThreads {
		opts.Threads = 0
	}
	if !flags.Changed("statistic") && defaults.SamplerPeriod > 0 {
		opts.StatisticSec = defaults.SamplerPeriod.Seconds()
	}
	opts.SysPaths = defaults.Filter.SysPaths
}

// configFileExists reports whether name (with a yaml extension) is present
// in any of paths, the same search viper.ReadInConfig performs internally.
// Checked up front so a missing file leaves the flags' own defaults
// untouched rather than picking up intcfg.Load's baseline fallback values.
func configFileExists(name string, paths []string) bool {
	for _, p := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			if _, err := os.Stat(filepath.Join(p, name+ext)); err == nil {
				return true
			}
		}
	}
	return false
}

// Execute runs a profiling session over the selected demo program and
// writes the report, implementing the bulk of §6 independent of cobra so
// it can be unit tested directly.
func Execute(log *zap.SugaredLogger, opts *Options, cmdline []string, stdout io.Writer) error {
	if _, _, ok := scriptvm.DemoSource(opts.Program); !ok {
		return &lineprofConfigError{scriptvm.UnknownProgramError(opts.Program)}
	}

	format, out := resolveFormat(opts.Format, opts.Out)

	sysPaths := opts.SysPaths
	if len(sysPaths) == 0 {
		sysPaths = defaultSysPaths()
	}
	filter := lineprof.NewFilter(opts.Include, opts.Exclude, sysPaths, opts.ExcludeSysPath)

	cfg := lineprof.Config{
		PropagateThreads: opts.Threads != 0,
		Filter:           filter,
		Cmdline:          append([]string{"lineprof", "run", "-m", opts.Program}, cmdline...),
	}
	if opts.StatisticSec > 0 {
		cfg.Statistical = time.Duration(opts.StatisticSec * float64(time.Second))
	}

	p := lineprof.New(cfg, log)
	if err := p.Enable(); err != nil {
		return &lineprofConfigError{err}
	}

	if err := runProgram(p, opts); err != nil {
		_, _ = p.Disable()
		return &lineprofConfigError{err}
	}

	profile, err := p.Disable()
	if err != nil {
		return &lineprofConfigError{err}
	}

	file, content, _ := scriptvm.DemoSource(opts.Program)
	src := newSyntheticSource(file, content)

	w := stdout
	var closer io.Closer
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return &lineprofConfigError{err}
		}
		w, closer = f, f
	}
	defer func() {
		if closer != nil {
			closer.Close()
		}
	}()

	if err := render(format, w, profile, src); err != nil {
		return err
	}

	if opts.Zipfile != "" {
		zf, err := os.Create(opts.Zipfile)
		if err != nil {
			return err
		}
		defer zf.Close()
		emitter := report.NewCallgrindEmitter()
		if err := emitter.WriteArchive(zf, profile, "cachegrind.out.lineprof", src); err != nil {
			return err
		}
	}

	return nil
}

func runProgram(p *lineprof.Profiler, opts *Options) error {
	if opts.StatisticSec > 0 {
		vm := scriptvm.New(nil)
		store, err := p.NewSampledStore(vm, true)
		if err != nil {
			return err
		}
		_ = store
		runDemo(vm, opts)
		return nil
	}

	tracer, err := p.NewTracer(true)
	if err != nil {
		return err
	}
	vm := scriptvm.New(tracer)
	runDemo(vm, opts)
	return nil
}

func runDemo(vm *scriptvm.VM, opts *Options) {
	switch opts.Program {
	case "fib":
		scriptvm.RunFib(vm, opts.FibN)
	case "sleeper":
		scriptvm.RunSleeper(vm, opts.Duration)
	case "busyloop":
		scriptvm.RunBusyLoop(vm, opts.Duration)
	}
}

// resolveFormat applies §6's "basename starting with cachegrind.out.
// implicitly selects Callgrind format" rule.
func resolveFormat(format, out string) (string, string) {
	if out != "" {
		base := out
		if i := strings.LastIndexByte(out, '/'); i >= 0 {
			base = out[i+1:]
		}
		if strings.HasPrefix(base, "cachegrind.out.") {
			return "callgrind", out
		}
	}
	if format == "" {
		format = "text"
	}
	return format, out
}

func render(format string, w io.Writer, profile *lineprof.GlobalProfile, src report.SourceLookup) error {
	switch format {
	case "text":
		return report.NewAnnotator(src).Write(w, profile)
	case "callgrind":
		return report.NewCallgrindEmitter().Write(w, profile)
	case "callgrindzip":
		return report.NewCallgrindEmitter().WriteArchive(w, profile, "cachegrind.out.lineprof", src)
	default:
		return &lineprofConfigError{fmt.Errorf("unknown --format %q", format)}
	}
}

// defaultSysPaths stands in for "the interpreter's standard library
// directories" (§6 --exclude-syspath); this module has no real
// interpreter, so it conservatively treats the Go module cache and
// vendor directories as the closest local analogue.
func defaultSysPaths() []string {
	return []string{os.Getenv("GOPATH") + "/pkg/mod", "vendor/"}
}

type lineprofConfigError struct{ err error }

func (e *lineprofConfigError) Error() string { return e.err.Error() }
func (e *lineprofConfigError) Unwrap() error { return e.err }
