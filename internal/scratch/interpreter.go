// Package scratch is the Lab: a persistent Go namespace in which code cells
// are evaluated one after another with yaegi. Names a cell defines remain
// visible to later cells until the namespace is reset.
//
// CAPABILITY BOUNDARY: cells run in-process with the full privileges of
// the host (filesystem, network, os/exec). Executor is the seam behind
// which a restricted implementation can be placed.
package scratch

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gora/internal/logging"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/traefik/yaegi/stdlib/unrestricted"
	"go.uber.org/zap"
)

// NoOutputMessage is shown when a cell ran successfully and printed nothing.
const NoOutputMessage = "Executed (no text output)."

// Preloaded are imported into every fresh namespace.
var Preloaded = []string{
	"fmt",
	"math",
	"os",
	"sort",
	"strconv",
	"strings",
	"time",
	LabImportPath,
}

// Executor runs code cells against a persistent namespace.
type Executor interface {
	Execute(ctx context.Context, code string) Result
	Snapshot() Snapshot
	Restore(snap Snapshot) error
	Reset() error
}

// Result is the outcome of one cell.
type Result struct {
	Cell      int
	Output    string
	Err       error
	Artifacts []Artifact
	Duration  time.Duration
}

// OK reports whether the cell ran without error.
func (r Result) OK() bool {
	return r.Err == nil
}

// Display returns the text to show for the cell.
func (r Result) Display() string {
	if r.Err != nil {
		if r.Output != "" {
			return r.Output + "\nError: " + r.Err.Error()
		}
		return "Error: " + r.Err.Error()
	}
	if r.Output == "" {
		return NoOutputMessage
	}
	return r.Output
}

// Snapshot is a replayable record of the namespace: the cells that ran
// successfully, in order.
type Snapshot struct {
	Cells []string
}

// Options configures an Interpreter.
type Options struct {
	// WatchDir enables artifact detection rooted at this directory.
	WatchDir string

	// WatchDepth bounds the directory walk (1 = top level only).
	WatchDepth int
}

// Interpreter is the yaegi-backed Executor.
type Interpreter struct {
	opts    Options
	vm      *interp.Interpreter
	imports map[string]bool
	out     *captureBuffer
	journal []string
	cells   int
	runs    int
}

var _ Executor = (*Interpreter)(nil)

// New creates an interpreter with a freshly seeded namespace.
func New(opts Options) (*Interpreter, error) {
	if opts.WatchDepth <= 0 {
		opts.WatchDepth = 1
	}
	in := &Interpreter{opts: opts, out: &captureBuffer{}}
	vm, imports, err := in.newVM()
	if err != nil {
		return nil, err
	}
	in.vm, in.imports = vm, imports
	return in, nil
}

// newVM returns a seeded interpreter and the imports it already holds.
func (in *Interpreter) newVM() (*interp.Interpreter, map[string]bool, error) {
	vm := interp.New(interp.Options{
		Stdout: in.out,
		Stderr: in.out,
	})
	if err := vm.Use(stdlib.Symbols); err != nil {
		return nil, nil, fmt.Errorf("failed to load stdlib: %w", err)
	}
	if err := vm.Use(unrestricted.Symbols); err != nil {
		return nil, nil, fmt.Errorf("failed to load unrestricted stdlib: %w", err)
	}
	if err := vm.Use(labSymbols); err != nil {
		return nil, nil, fmt.Errorf("failed to load lab helpers: %w", err)
	}

	var seed strings.Builder
	seed.WriteString("import (\n")
	imports := make(map[string]bool, len(Preloaded))
	for _, pkg := range Preloaded {
		fmt.Fprintf(&seed, "\t%q\n", pkg)
		imports[importSpec{Path: pkg}.key()] = true
	}
	seed.WriteString(")")
	if _, err := vm.Eval(seed.String()); err != nil {
		return nil, nil, fmt.Errorf("failed to seed namespace: %w", err)
	}
	in.out.Reset()
	return vm, imports, nil
}

// Execute evaluates one cell. It never panics and never returns an error
// directly: failures are reported in Result.Err and whatever the cell
// changed before failing stays in the namespace.
func (in *Interpreter) Execute(ctx context.Context, code string) (res Result) {
	log := logging.Get(logging.CategoryLab)
	in.cells++
	res.Cell = in.cells
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	var before fileSet
	if in.opts.WatchDir != "" {
		before = listFiles(in.opts.WatchDir, in.opts.WatchDepth)
	}

	in.out.Reset()
	err := in.eval(ctx, code)
	res.Output = in.out.String()
	res.Err = err
	if err != nil {
		res.Output = stripPanicTrace(res.Output)
	}

	if err == nil {
		in.journal = append(in.journal, code)
	}
	if in.opts.WatchDir != "" {
		res.Artifacts = newArtifacts(in.opts.WatchDir, before, listFiles(in.opts.WatchDir, in.opts.WatchDepth))
	}

	log.Debug("cell executed",
		zap.Int("cell", res.Cell),
		zap.Bool("ok", err == nil),
		zap.Int("output_bytes", len(res.Output)),
		zap.Int("artifacts", len(res.Artifacts)),
		zap.Error(err))
	return res
}

// eval runs one cell. Imports the namespace already holds are skipped, so
// a cell may repeat them; new ones are loaded one at a time before the body.
func (in *Interpreter) eval(ctx context.Context, code string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	in.runs++
	body, specs := splitCell(code, fmt.Sprintf("labMain%d", in.runs))
	for _, spec := range specs {
		if err := in.load(ctx, spec); err != nil {
			return err
		}
	}
	if strings.TrimSpace(body) == "" {
		return nil
	}
	_, err = in.vm.EvalWithContext(ctx, body)
	return err
}

func (in *Interpreter) load(ctx context.Context, spec importSpec) error {
	key := spec.key()
	if in.imports[key] {
		return nil
	}
	// A redeclaration means an earlier failed cell got as far as importing it.
	if _, err := in.vm.EvalWithContext(ctx, spec.source()); err != nil && !strings.Contains(err.Error(), "redeclared") {
		return err
	}
	in.imports[key] = true
	return nil
}

// Snapshot returns the journal of successful cells.
func (in *Interpreter) Snapshot() Snapshot {
	return Snapshot{Cells: append([]string(nil), in.journal...)}
}

// Restore rebuilds the namespace by replaying a snapshot in a fresh
// interpreter. Replayed cells run again, side effects included. On failure
// the current namespace is kept.
func (in *Interpreter) Restore(snap Snapshot) error {
	vm, imports, err := in.newVM()
	if err != nil {
		return err
	}
	prevVM, prevImports := in.vm, in.imports
	in.vm, in.imports = vm, imports
	for i, cell := range snap.Cells {
		if err := in.eval(context.Background(), cell); err != nil {
			in.vm, in.imports = prevVM, prevImports
			in.out.Reset()
			return fmt.Errorf("restore cell %d: %w", i+1, err)
		}
	}
	in.out.Reset()
	in.journal = append([]string(nil), snap.Cells...)
	logging.Get(logging.CategoryLab).Info("namespace restored", zap.Int("cells", len(snap.Cells)))
	return nil
}

// Reset discards every name defined so far.
func (in *Interpreter) Reset() error {
	vm, imports, err := in.newVM()
	if err != nil {
		return err
	}
	in.vm, in.imports = vm, imports
	in.journal = nil
	logging.Get(logging.CategoryLab).Info("namespace reset")
	return nil
}

// captureBuffer collects cell output; interpreted goroutines may write concurrently.
type captureBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *captureBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(p)
}

func (c *captureBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func (c *captureBuffer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Reset()
}
