// Package relocate moves a processed source document from the incoming area
// to the processed area. Relocation is housekeeping: it never fails the job.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/blob"
)

// Defaults for the storage layout.
const (
	DefaultIncomingPrefix  = "incoming/"
	DefaultProcessedPrefix = "processed/"
	DefaultExtension       = ".pdf"
)

var (
	// ErrNoSource is reported when no candidate source file exists.
	ErrNoSource = errors.New("relocate: no source file found")
	// ErrOutsideIncoming is reported for a source key not under the incoming prefix.
	ErrOutsideIncoming = errors.New("relocate: source is not in the incoming area")
)

// Config describes the storage layout.
type Config struct {
	IncomingPrefix  string
	ProcessedPrefix string
	Extension       string
}

// Result reports what happened. Err is informational only.
type Result struct {
	Moved bool
	From  string
	To    string
	// Guessed is set when the source was chosen by recency rather than from
	// job metadata.
	Guessed bool
	Err     error
}

// Relocator moves source files within one bucket.
type Relocator struct {
	config Config
	logger *slog.Logger
}

// NewRelocator fills unset config fields with the defaults.
func NewRelocator(config Config, logger *slog.Logger) *Relocator {
	if config.IncomingPrefix == "" {
		config.IncomingPrefix = DefaultIncomingPrefix
	}
	if config.ProcessedPrefix == "" {
		config.ProcessedPrefix = DefaultProcessedPrefix
	}
	config.Extension = strings.ToLower(config.Extension)
	if config.Extension == "" {
		config.Extension = DefaultExtension
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relocator{config: config, logger: logger}
}

// Relocate copies the job's source file into the processed area, keeping its
// filename, then deletes the original. sourceKey comes from the job metadata;
// when it is empty the most recently modified matching file in the incoming
// area is used. Failures are logged and reported in Result, never returned.
func (r *Relocator) Relocate(ctx context.Context, store blob.Store, jobID, sourceKey string) (res Result) {
	logCtx := r.logger.With("jobId", jobID, "stage", "relocate")
	defer func() {
		if p := recover(); p != nil {
			res.Moved = false
			res.Err = fmt.Errorf("panic: %v", p)
		}
		if res.Err != nil {
			logCtx.Warn("Source relocation failed, continuing.", "from", res.From, "error", res.Err)
		}
	}()

	if store == nil {
		return Result{Err: errors.New("relocate: no store configured")}
	}

	if sourceKey == "" {
		key, err := r.mostRecent(ctx, store)
		if err != nil {
			return Result{Guessed: true, Err: err}
		}
		logCtx.Warn("No source key in job metadata, selected most recent file.", "key", key)
		sourceKey, res.Guessed = key, true
	} else if !strings.HasPrefix(sourceKey, r.config.IncomingPrefix) {
		return Result{From: sourceKey, Err: fmt.Errorf("%s: %w", sourceKey, ErrOutsideIncoming)}
	}

	res.From = sourceKey
	res.To = r.config.ProcessedPrefix + path.Base(sourceKey)

	if err := store.Copy(ctx, res.From, res.To); err != nil {
		res.Err = fmt.Errorf("copy: %w", err)
		return res
	}
	if err := store.Delete(ctx, res.From); err != nil {
		res.Err = fmt.Errorf("delete original: %w", err)
		return res
	}
	res.Moved = true
	logCtx.Info("Moved source document.", "from", store.URI(res.From), "to", store.URI(res.To))
	return res
}

func (r *Relocator) mostRecent(ctx context.Context, store blob.Store) (string, error) {
	objs, err := store.List(ctx, r.config.IncomingPrefix)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", r.config.IncomingPrefix, err)
	}
	var best *blob.ObjectInfo
	for i := range objs {
		o := &objs[i]
		if !strings.HasSuffix(strings.ToLower(o.Key), r.config.Extension) {
			continue
		}
		if best == nil || o.Updated.After(best.Updated) {
			best = o
		}
	}
	if best == nil {
		return "", ErrNoSource
	}
	return best.Key, nil
}
