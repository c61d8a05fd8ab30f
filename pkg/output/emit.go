package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tjarrettveracode/veracode-collections-report/pkg/output/writers"
	"github.com/tjarrettveracode/veracode-collections-report/pkg/report"
)

// Result is the outcome of one format.
type Result struct {
	Format string
	Path   string // final path, empty when the format failed
	Bytes  int
	Err    error // *writers.RenderError or a file system error
}

// OK reports whether the document was written.
func (r Result) OK() bool { return r.Err == nil }

// Emitter renders a model in several formats and writes the documents to
// one directory.
type Emitter struct {
	dir    string
	names  *NameTemplate
	logger *slog.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithDir sets the output directory. Defaults to the working directory.
func WithDir(dir string) Option {
	return func(e *Emitter) { e.dir = dir }
}

// WithNameTemplate sets the parsed file name template.
func WithNameTemplate(n *NameTemplate) Option {
	return func(e *Emitter) { e.names = n }
}

// WithLogger sets the structured logger. Nil means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Emitter) { e.logger = l }
}

// NewEmitter creates an emitter.
func NewEmitter(opts ...Option) (*Emitter, error) {
	e := &Emitter{dir: "."}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.names == nil {
		n, err := ParseNameTemplate("")
		if err != nil {
			return nil, err
		}
		e.names = n
	}
	return e, nil
}

// Emit renders m once per renderer and writes each document atomically.
// A failing format does not stop the others; inspect the per-format
// results. The returned error is non-nil only when the run cannot proceed
// at all (bad name template, missing directory, cancellation).
//
// Documents are staged as temporary files and renamed into place only
// after every format was rendered, so a cancelled call leaves the output
// directory, including reports from earlier runs, as it found it.
func (e *Emitter) Emit(ctx context.Context, m *report.Model, renderers []writers.Renderer) ([]Result, error) {
	base, err := e.names.Base(NameDataFor(m))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("output: create %s: %w", e.dir, err)
	}

	type staged struct {
		index     int
		tmp, path string
	}
	results := make([]Result, 0, len(renderers))
	var pending []staged
	discard := func() {
		for _, s := range pending {
			os.Remove(s.tmp)
		}
	}

	for _, r := range renderers {
		if err := context.Cause(ctx); err != nil {
			discard()
			return results, fmt.Errorf("output: %w", err)
		}
		res := Result{Format: r.Format()}
		var buf bytes.Buffer
		if err := r.Render(&buf, m); err != nil {
			res.Err = err
			e.logger.Error("render failed", slog.String("format", r.Format()), slog.String("error", err.Error()))
			results = append(results, res)
			continue
		}
		path := filepath.Join(e.dir, base+r.Extension())
		tmp, err := stageFile(path, buf.Bytes())
		if err != nil {
			res.Err = err
			e.logger.Error("write failed", slog.String("path", path), slog.String("error", err.Error()))
			results = append(results, res)
			continue
		}
		res.Bytes = buf.Len()
		pending = append(pending, staged{index: len(results), tmp: tmp, path: path})
		results = append(results, res)
	}
	if err := context.Cause(ctx); err != nil {
		discard()
		return results, fmt.Errorf("output: %w", err)
	}

	for _, s := range pending {
		res := &results[s.index]
		if err := os.Rename(s.tmp, s.path); err != nil {
			os.Remove(s.tmp)
			res.Err = fmt.Errorf("output: rename temp file: %w", err)
			res.Bytes = 0
			e.logger.Error("write failed", slog.String("path", s.path), slog.String("error", err.Error()))
			continue
		}
		res.Path = s.path
		e.logger.Info("report written", slog.String("format", res.Format), slog.String("path", s.path), slog.Int("bytes", res.Bytes))
	}
	return results, nil
}

// Failures joins the errors of failed formats, or returns nil.
func Failures(results []Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

// stageFile writes data to a synced temporary file next to path and
// returns its name. Nothing is left behind on failure.
func stageFile(path string, data []byte) (_ string, err error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("output: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return "", fmt.Errorf("output: write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return "", fmt.Errorf("output: sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("output: close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return "", fmt.Errorf("output: chmod temp file: %w", err)
	}
	return tmpPath, nil
}
