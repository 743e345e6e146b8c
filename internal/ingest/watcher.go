// Package ingest watches an inbox folder and feeds dropped audio files to
// the upload pipeline. Files must be named <trackID>.<ext>.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"musiccatalog/internal/media"
	"musiccatalog/pkg/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultSettleDelay is how long a file must stay quiet before it is read
const DefaultSettleDelay = 500 * time.Millisecond

// Acceptor receives uploads, normally the transcode pipeline
type Acceptor interface {
	Accept(ctx context.Context, trackID int64, raw []byte, filename, contentType string) (*models.TrackFile, error)
}

// Watcher monitors a single inbox directory
type Watcher struct {
	dir      string
	acceptor Acceptor
	isAudio  func(name string) bool
	logger   *logrus.Logger
	settle   time.Duration

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// NewWatcher creates an inbox watcher. isAudio filters candidate names.
func NewWatcher(dir string, acceptor Acceptor, isAudio func(string) bool, logger *logrus.Logger) *Watcher {
	return &Watcher{
		dir:      dir,
		acceptor: acceptor,
		isAudio:  isAudio,
		logger:   logger,
		settle:   DefaultSettleDelay,
		pending:  make(map[string]*time.Timer),
	}
}

// Start begins watching and queues files already sitting in the inbox
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	w.wg.Add(1)
	go w.watchFiles()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.schedule(filepath.Join(w.dir, entry.Name()))
		}
	}

	w.logger.WithField("inbox", w.dir).Info("Inbox watcher started")
	return nil
}

// Stop closes the watcher and waits for in-flight files (idempotent)
func (w *Watcher) Stop() {
	if w.watcher != nil {
		w.watcher.Close()
	}

	w.mu.Lock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Watcher) watchFiles() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("Inbox watcher error")
		}
	}
}

// schedule (re)arms the settle timer for path so bursts of write events
// lead to a single read.
func (w *Watcher) schedule(path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp") || !w.isAudio(name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		if timer.Stop() {
			timer.Reset(w.settle)
			return
		}
	}

	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[path] == timer {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if err := w.ProcessFile(context.Background(), path); err != nil {
			w.logger.WithError(err).WithField("file_path", path).Warn("Failed to ingest file")
		}
	})
	w.pending[path] = timer
}

// ProcessFile hands one inbox file to the acceptor and removes it on success
func (w *Watcher) ProcessFile(ctx context.Context, path string) error {
	name := filepath.Base(path)
	trackID, err := ParseTrackID(name)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	tf, err := w.acceptor.Accept(ctx, trackID, data, name, media.ContentType(name))
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		w.logger.WithError(err).WithField("file_path", path).Warn("Failed to remove ingested file")
	}

	w.logger.WithFields(logrus.Fields{
		"track_id":      trackID,
		"track_file_id": tf.ID,
		"size":          len(data),
	}).Info("Ingested file from inbox")
	return nil
}

// ParseTrackID extracts the track ID from a name like "42.mp3"
func ParseTrackID(name string) (int64, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	id, err := strconv.ParseInt(stem, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("inbox file %q is not named <trackID>.<ext>", name)
	}
	return id, nil
}
