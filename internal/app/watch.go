package app

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// WatchDictionaryFile reloads the local dictionary whenever the file changes
// on disk. The parent directory is watched because editors and SaveFile
// replace the file by rename. The watcher stops when ctx is done.
func (a *App) WatchDictionaryFile(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(a.dictPath)
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}
	target := filepath.Clean(a.dictPath)

	go func() {
		defer w.Close()
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(reloadDebounce)
				}
			case <-debounce.C:
				if _, err := a.ReloadDictionary(); err != nil {
					a.log.Error("dictionary: reload after change failed", "err", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				a.log.Error("dictionary: watch error", "err", err)
			}
		}
	}()
	return nil
}
