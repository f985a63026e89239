package license

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartWatcher revalidates whenever the stored artifact blob changes, so an
// import through the UI shell takes effect without a restart. The blob may
// not exist yet on first run, so the store directory is watched and events
// are filtered by name. onResult receives every outcome; nil is allowed.
//
// If fsnotify cannot be set up the watcher is skipped; the scheduler's
// periodic recheck still covers changes, just slower.
func (e *Engine) StartWatcher(ctx context.Context, onResult func(Status)) {
	target := e.store.LicensePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("License Watcher: fsnotify unavailable (%v), relying on periodic recheck", err)
		return
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		log.Printf("License Watcher: cannot watch %s (%v), relying on periodic recheck", filepath.Dir(target), err)
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, okChan := <-watcher.Events:
				if !okChan {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(target) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				log.Println("License Watcher: artifact changed, revalidating")
				// Debounce: the encrypting writer renames over the target,
				// but editors and copies may produce bursts.
				time.Sleep(100 * time.Millisecond)
				st, verr := e.ValidateCachedLicense(ctx)
				if verr != nil {
					log.Printf("License Watcher: revalidation error: %v", verr)
					continue
				}
				if onResult != nil {
					onResult(st)
				}
			case werr, okChan := <-watcher.Errors:
				if !okChan {
					return
				}
				log.Printf("License Watcher Error: %v", werr)
			}
		}
	}()
}
