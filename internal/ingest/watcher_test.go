package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"musiccatalog/internal/media"
	"musiccatalog/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type acceptCall struct {
	trackID     int64
	data        string
	filename    string
	contentType string
}

type recordingAcceptor struct {
	mu    sync.Mutex
	calls []acceptCall
	err   error
}

func (r *recordingAcceptor) Accept(_ context.Context, trackID int64, raw []byte, filename, contentType string) (*models.TrackFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, acceptCall{trackID, string(raw), filename, contentType})
	if r.err != nil {
		return nil, r.err
	}
	return &models.TrackFile{ID: 1, TrackID: trackID}, nil
}

func (r *recordingAcceptor) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestWatcher(t *testing.T, acceptor Acceptor) (*Watcher, string) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	dir := filepath.Join(t.TempDir(), "inbox")
	prober := media.NewProber(nil, logger)
	w := NewWatcher(dir, acceptor, prober.IsAudioFile, logger)
	w.settle = 20 * time.Millisecond
	return w, dir
}

func TestParseTrackID(t *testing.T) {
	tests := []struct {
		name    string
		want    int64
		wantErr bool
	}{
		{"42.mp3", 42, false},
		{"7.flac", 7, false},
		{"song.mp3", 0, true},
		{"0.mp3", 0, true},
		{"-3.wav", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTrackID(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessFile(t *testing.T) {
	acceptor := &recordingAcceptor{}
	w, dir := newTestWatcher(t, acceptor)
	require.NoError(t, os.MkdirAll(dir, 0755))

	path := filepath.Join(dir, "12.mp3")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))

	require.NoError(t, w.ProcessFile(context.Background(), path))
	require.Len(t, acceptor.calls, 1)
	assert.Equal(t, acceptCall{12, "audio", "12.mp3", "audio/mpeg"}, acceptor.calls[0])

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "ingested file should be removed")
}

func TestProcessFileKeepsRejectedFiles(t *testing.T) {
	acceptor := &recordingAcceptor{err: errors.New("track not found")}
	w, dir := newTestWatcher(t, acceptor)
	require.NoError(t, os.MkdirAll(dir, 0755))

	path := filepath.Join(dir, "99.wav")
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))

	assert.Error(t, w.ProcessFile(context.Background(), path))
	_, err := os.Stat(path)
	assert.NoError(t, err, "rejected file should stay in the inbox")
}

func TestWatcherPicksUpFiles(t *testing.T) {
	acceptor := &recordingAcceptor{}
	w, dir := newTestWatcher(t, acceptor)
	require.NoError(t, os.MkdirAll(dir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.mp3"), []byte("existing"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	require.NoError(t, w.Start())
	defer w.Stop()

	require.Eventually(t, func() bool { return acceptor.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.flac"), []byte("dropped"), 0644))
	require.Eventually(t, func() bool { return acceptor.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	_, err := os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}
