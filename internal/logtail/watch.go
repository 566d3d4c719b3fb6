package logtail

import (
	"github.com/fsnotify/fsnotify"
)

// waker turns filesystem events under the log root into wake-ups so the
// tailer does not sit out a full idle delay after a write or a new folder.
type waker struct {
	w      *fsnotify.Watcher
	c      chan struct{}
	folder string
	done   chan struct{}
}

func newWaker(root string) (*waker, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(root); err != nil {
		w.Close()
		return nil, err
	}
	k := &waker{w: w, c: make(chan struct{}, 1), done: make(chan struct{})}
	go k.loop()
	return k, nil
}

func (k *waker) loop() {
	defer close(k.done)
	for {
		select {
		case _, ok := <-k.w.Events:
			if !ok {
				return
			}
			select {
			case k.c <- struct{}{}:
			default:
			}
		case _, ok := <-k.w.Errors:
			if !ok {
				return
			}
		}
	}
}

// follow moves the folder watch to dir.
func (k *waker) follow(dir string) {
	if dir == k.folder {
		return
	}
	if k.folder != "" {
		_ = k.w.Remove(k.folder)
	}
	if err := k.w.Add(dir); err == nil {
		k.folder = dir
	} else {
		k.folder = ""
	}
}

func (k *waker) close() {
	k.w.Close()
	<-k.done
}
