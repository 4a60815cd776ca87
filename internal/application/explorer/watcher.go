package explorer

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/MetaboScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MetaboScope/pkg/errors"
	"github.com/turtacn/MetaboScope/pkg/types/metabolic"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a model file whenever it changes on disk.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(context.Context, metabolic.RawModel)
	logger   logging.Logger
}

// NewWatcher watches path and calls onChange with every successfully decoded
// revision. Revisions that fail to decode are logged and skipped.
func NewWatcher(path string, onChange func(context.Context, metabolic.RawModel), logger logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   logger.Named("watcher"),
	}
}

// Run blocks until ctx is done. The parent directory is watched so that
// files replaced by rename are still picked up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create file watcher")
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return errors.Wrap(err, errors.ErrCodeModelUnreadable, "failed to watch model directory").WithDetail("path=" + w.path)
	}
	w.logger.Info("watching model file", logging.String("path", w.path))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", logging.Err(err))
		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	raw, err := ReadModelFile(w.path)
	if err != nil {
		w.logger.Warn("model reload skipped", logging.String("path", w.path), logging.Err(err))
		return
	}
	w.logger.Info("model file changed", logging.String("path", w.path))
	w.onChange(ctx, raw)
}
