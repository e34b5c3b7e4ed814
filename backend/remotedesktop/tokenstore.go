package remotedesktop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/b0bbywan/go-odio-portal/logger"
)

// TokenStore keeps the restore token in a file and follows external edits:
// deleting the file forgets the token, rewriting it reloads it.
type TokenStore struct {
	path string

	mu    sync.RWMutex
	token string

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTokenStore loads path and watches its directory until ctx ends or Close.
// An empty path returns a store that keeps the token in memory only.
func NewTokenStore(ctx context.Context, path string) (*TokenStore, error) {
	ts := &TokenStore{path: path}
	if path == "" {
		return ts, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	ts.token = ts.read()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	ts.watcher = watcher
	ts.cancel = cancel
	ts.done = make(chan struct{})
	go ts.watch(ctx)

	logger.Debug("[remotedesktop] watching restore token %s", path)
	return ts, nil
}

// Load returns the current restore token, empty if none.
func (ts *TokenStore) Load() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.token
}

// Save stores token. An empty token removes the file.
func (ts *TokenStore) Save(token string) error {
	ts.mu.Lock()
	ts.token = token
	ts.mu.Unlock()

	if ts.path == "" {
		return nil
	}
	if token == "" {
		if err := os.Remove(ts.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.WriteFile(ts.path, []byte(token+"\n"), 0o600)
}

// Close stops watching the file.
func (ts *TokenStore) Close() {
	if ts.cancel == nil {
		return
	}
	ts.cancel()
	<-ts.done
}

func (ts *TokenStore) read() string {
	data, err := os.ReadFile(ts.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (ts *TokenStore) watch(ctx context.Context) {
	defer close(ts.done)
	defer ts.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ts.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(ts.path) {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				ts.mu.Lock()
				ts.token = ""
				ts.mu.Unlock()
				logger.Info("[remotedesktop] restore token removed, next session will ask for consent")
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				token := ts.read()
				ts.mu.Lock()
				ts.token = token
				ts.mu.Unlock()
				logger.Debug("[remotedesktop] restore token reloaded")
			}
		case err, ok := <-ts.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("[remotedesktop] restore token watcher error: %v", err)
		}
	}
}
