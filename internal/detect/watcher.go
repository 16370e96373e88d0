package detect

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// WatchModel watches modelPath for writes/creates and calls reload
// whenever the file changes, triggering LoadModel's hot-swap path.
// Exits cleanly when stopCh is closed.
func WatchModel(modelPath string, reload func(path string) error, stopCh <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(modelPath); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-stopCh:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					log.Printf("[detect] model file changed (%s), reloading", event.Op)
					if err := reload(modelPath); err != nil {
						log.Printf("[detect] model reload failed: %v", err)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("[detect] model watcher error: %v", err)
			}
		}
	}()

	return nil
}
