// Package pipeline contains the ingestion orchestrator: the state machine
// deciding, for any file path, whether to (re)validate and/or (re)export it.
//
// Each (directory, dataset key) moves through Unvalidated -> Valid -> Exported,
// with the failure branch Unvalidated -> Invalid terminal until an operator
// resets the status record. The same Process routine serves both the startup
// backlog sweep and live watcher notifications, so cold-start and steady-state
// share one code path. Processing is serialized per (directory, dataset key):
// a sweep invocation and a live event for the same file can never interleave.
package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/nexabank/bankfeed/decode"
	"github.com/nexabank/bankfeed/errors"
	"github.com/nexabank/bankfeed/frame"
	"github.com/nexabank/bankfeed/logger"
	"github.com/nexabank/bankfeed/schema"
	"github.com/nexabank/bankfeed/status"
	"github.com/nexabank/bankfeed/transform"
	"github.com/nexabank/bankfeed/validate"
)

// DecodeFunc turns a file into a frame. Expected failure classes (missing,
// empty, malformed, undecodable) return ok=false, never an error.
type DecodeFunc func(path string) (bool, *frame.Frame)

// TransformFunc enriches a decoded frame in place for the dataset inferred
// from the path. Errors on an unsupported dataset key.
type TransformFunc func(fr *frame.Frame, path string) error

// Exporter ships a frame to the warehouse under a destination name.
type Exporter interface {
	Export(fr *frame.Frame, name string) (bool, string)
}

// Notifier reports a failed file to the operator. Best-effort.
type Notifier interface {
	Notify(path, report string)
}

// Config assembles the orchestrator's collaborators. Decode and Transform
// default to the in-tree implementations when nil.
type Config struct {
	Root      string
	Datasets  []string
	Rules     *schema.Ruleset
	Store     *status.Store
	Exporter  Exporter
	Notifier  Notifier // optional
	Decode    DecodeFunc
	Transform TransformFunc
}

// Orchestrator drives files through validate and export.
type Orchestrator struct {
	root      string
	datasets  map[string]struct{}
	store     *status.Store
	validator *validate.Validator
	decode    DecodeFunc
	transform TransformFunc
	exporter  Exporter
	notifier  Notifier

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds an orchestrator from the given collaborators.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		root:      cfg.Root,
		datasets:  make(map[string]struct{}, len(cfg.Datasets)),
		store:     cfg.Store,
		validator: validate.New(cfg.Rules),
		decode:    cfg.Decode,
		transform: cfg.Transform,
		exporter:  cfg.Exporter,
		notifier:  cfg.Notifier,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, d := range cfg.Datasets {
		o.datasets[d] = struct{}{}
	}
	if o.decode == nil {
		o.decode = decode.Decode
	}
	if o.transform == nil {
		o.transform = transform.Apply
	}
	return o
}

// Process runs the state machine for one file path. Idempotent: a path whose
// record is already terminal (invalid, or exported) is a no-op. Every status
// transition is committed before Process returns.
func (o *Orchestrator) Process(path string) error {
	if _, tracked := o.datasets[status.Key(path)]; !tracked {
		return nil
	}

	lock := o.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	rec, err := o.store.Get(path)
	if err != nil {
		return err
	}

	if rec.Valid == nil {
		ok, fr, err := o.validateFile(path)
		if err != nil {
			return err
		}
		if setErr := o.store.SetValid(path, ok); setErr != nil {
			return setErr
		}
		o.store.Commit(path)
		if !ok {
			logger.Infow("File failed validation", "path", path)
			return nil
		}
		logger.Infow("File passed validation", "path", path)
		return o.export(path, fr)
	}

	if !*rec.Valid {
		logger.Debugw("Skipping file already marked invalid", "path", path)
		return nil
	}
	if rec.Exported {
		logger.Debugw("Skipping file already exported", "path", path)
		return nil
	}

	// Record persisted as (pass, false): a restart interrupted the export.
	// Resume at the transform step without re-validating.
	ok, fr := o.decode(path)
	if !ok {
		return errors.Newf("cannot re-decode %s for export", path)
	}
	return o.export(path, fr)
}

// validateFile decodes and validates one file, routing failures to the
// notifier. The error is non-nil only for schema configuration problems.
func (o *Orchestrator) validateFile(path string) (bool, *frame.Frame, error) {
	ok, fr := o.decode(path)
	if !ok {
		o.notify(path, "The file could not be decoded (missing, empty, or malformed).")
		return false, nil, nil
	}

	res, err := o.validator.Validate(status.Key(path), fr)
	if err != nil {
		return false, nil, err
	}
	if !res.OK {
		o.notify(path, validate.FormatReport(res.Frame, res))
		return false, nil, nil
	}
	return true, res.Frame, nil
}

// export transforms and ships a validated frame. Failures propagate so the
// exported flag stays false and the file is retried on the next invocation.
func (o *Orchestrator) export(path string, fr *frame.Frame) error {
	if err := o.transform(fr, path); err != nil {
		return errors.Wrapf(err, "transform failed for %s", path)
	}

	ok, msg := o.exporter.Export(fr, o.destination(path))
	if !ok {
		return errors.Wrapf(errors.ErrExport, "%s: %s", path, msg)
	}

	if err := o.store.SetExported(path, true); err != nil {
		return err
	}
	o.store.Commit(path)
	logger.Infow("File exported", "path", path, "result", msg)
	return nil
}

// Sweep feeds every pre-existing matching file under the root through Process,
// oldest first by directory walk order. Per-file errors are logged and the
// sweep continues.
func (o *Orchestrator) Sweep() {
	paths := o.backlog()
	if len(paths) == 0 {
		return
	}
	logger.Infow("Sweeping backlog", "root", o.root, "files", len(paths))
	for _, path := range paths {
		if err := o.Process(path); err != nil {
			logger.Errorw("Backlog processing failed", "path", path, "error", err)
		}
	}
}

// Run consumes stable-file notifications with a pool of workers, after first
// queueing the backlog so cold-start files and live traffic share the same
// consumers. Returns when the context is cancelled or the events channel
// closes, after the workers have drained the queue.
func (o *Orchestrator) Run(ctx context.Context, events <-chan string, workers int) {
	if workers <= 0 {
		workers = 1
	}

	backlog := o.backlog()
	queue := make(chan string, len(backlog)+cap(events)+1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range queue {
				if err := o.Process(path); err != nil {
					logger.Errorw("Processing failed", "path", path, "error", err)
				}
			}
		}()
	}

	logger.Infow("Pipeline running", "workers", workers, "backlog", len(backlog))
	for _, path := range backlog {
		queue <- path
	}

	for {
		select {
		case <-ctx.Done():
			close(queue)
			wg.Wait()
			return
		case path, ok := <-events:
			if !ok {
				close(queue)
				wg.Wait()
				return
			}
			select {
			case queue <- path:
			case <-ctx.Done():
				close(queue)
				wg.Wait()
				return
			}
		}
	}
}

// backlog lists every tracked file under the root in lexical walk order.
func (o *Orchestrator) backlog() []string {
	var paths []string
	err := filepath.WalkDir(o.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if _, tracked := o.datasets[status.Key(path)]; tracked {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		logger.Warnw("Backlog walk incomplete", "root", o.root, "error", err)
	}
	return paths
}

// destination is the warehouse-relative name for a source file: its path
// relative to the watched root.
func (o *Orchestrator) destination(path string) string {
	rel, err := filepath.Rel(o.root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// lockFor returns the mutex serializing work on one (directory, dataset key).
func (o *Orchestrator) lockFor(path string) *sync.Mutex {
	key := filepath.Dir(path) + "\x00" + status.Key(path)

	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[key] = lock
	}
	return lock
}

// notify forwards a failure report when a notifier is configured.
func (o *Orchestrator) notify(path, report string) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(path, report)
}
