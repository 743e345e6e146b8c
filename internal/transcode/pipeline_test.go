package transcode

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/config"
	"musiccatalog/internal/database"
	"musiccatalog/internal/media"
	"musiccatalog/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualScheduler holds units until the test runs them
type manualScheduler struct {
	mu    sync.Mutex
	units []Unit
}

func (m *manualScheduler) Schedule(_ string, unit Unit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.units = append(m.units, unit)
}

func (m *manualScheduler) run(i int) {
	m.units[i](context.Background())
}

type fakeTranscoder struct {
	fail bool
}

func (f fakeTranscoder) Transcode(_ context.Context, raw []byte) ([]byte, error) {
	if f.fail {
		return nil, errors.New("corrupt input")
	}
	return append([]byte("mp3:"), raw...), nil
}

type fakeProber struct {
	err error
}

func (f fakeProber) Probe([]byte) (media.Info, error) {
	return media.Info{Format: media.FormatMP3}, f.err
}

type fixture struct {
	db    *database.Database
	sched *manualScheduler
	track int64
	album int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.NewDatabase(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "transcode.db"),
		MaxConnections: 2,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	track, err := db.InsertMusicItem(ctx, models.MusicItem{Title: "Track", ItemType: models.ItemTypeTrack})
	require.NoError(t, err)
	album, err := db.InsertMusicItem(ctx, models.MusicItem{Title: "Album", ItemType: models.ItemTypeAlbum})
	require.NoError(t, err)

	return fixture{db: db, sched: &manualScheduler{}, track: track, album: album}
}

func (f fixture) pipeline(tr Transcoder, pr Prober) *Pipeline {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewPipeline(f.db, f.sched, tr, pr, logger)
}

func TestAcceptValidation(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(fakeTranscoder{}, nil)
	ctx := context.Background()

	_, err := p.Accept(ctx, 999, []byte("x"), "a.mp3", "audio/mpeg")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = p.Accept(ctx, f.album, []byte("x"), "a.mp3", "audio/mpeg")
	assert.True(t, apperrors.IsValidation(err))

	big := make([]byte, MaxUploadBytes+1)
	_, err = p.Accept(ctx, f.track, big, "a.mp3", "audio/mpeg")
	assert.True(t, apperrors.IsPayloadTooLarge(err))

	_, err = p.Fetch(ctx, f.track)
	assert.True(t, apperrors.IsNotFound(err), "rejected uploads must not persist anything")
	assert.Empty(t, f.sched.units)

	_, err = p.Accept(ctx, f.track, make([]byte, MaxUploadBytes), "a.mp3", "audio/mpeg")
	assert.NoError(t, err, "exactly the ceiling is accepted")
}

func TestAcceptThenTranscode(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(fakeTranscoder{}, fakeProber{})
	ctx := context.Background()
	raw := []byte("raw audio bytes")

	placeholder, err := p.Accept(ctx, f.track, raw, "song.wav", "")
	require.NoError(t, err)
	assert.Empty(t, placeholder.Data)
	assert.False(t, placeholder.Compressed)
	assert.Equal(t, int64(len(raw)), placeholder.OriginalSize)
	assert.Equal(t, "audio/wav", placeholder.ContentType)

	pending, err := p.Fetch(ctx, f.track)
	require.NoError(t, err)
	assert.Empty(t, pending.Data)

	require.Len(t, f.sched.units, 1)
	f.sched.run(0)

	ready, err := p.Fetch(ctx, f.track)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3:raw audio bytes"), ready.Data)
	assert.Equal(t, int64(len(raw)), ready.OriginalSize)
}

func TestBackgroundFailureIsSilent(t *testing.T) {
	tests := []struct {
		name string
		tr   Transcoder
		pr   Prober
	}{
		{name: "transcoder error", tr: fakeTranscoder{fail: true}, pr: fakeProber{}},
		{name: "undecodable input", tr: fakeTranscoder{}, pr: fakeProber{err: media.ErrUnsupportedFormat}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			p := f.pipeline(tt.tr, tt.pr)
			ctx := context.Background()

			_, err := p.Accept(ctx, f.track, []byte("garbage"), "x.mp3", "audio/mpeg")
			require.NoError(t, err)
			f.sched.run(0)

			tf, err := p.Fetch(ctx, f.track)
			require.NoError(t, err)
			assert.Empty(t, tf.Data)
			assert.Equal(t, int64(7), tf.OriginalSize)
		})
	}
}

func TestStaleUnitOverwritesNewerUpload(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(fakeTranscoder{}, nil)
	ctx := context.Background()

	_, err := p.Accept(ctx, f.track, []byte("old"), "old.mp3", "audio/mpeg")
	require.NoError(t, err)
	_, err = p.Accept(ctx, f.track, []byte("newer"), "new.mp3", "audio/mpeg")
	require.NoError(t, err)

	f.sched.run(1)
	f.sched.run(0)

	tf, err := p.Fetch(ctx, f.track)
	require.NoError(t, err)
	assert.Equal(t, "new.mp3", tf.Filename)
	assert.Equal(t, int64(5), tf.OriginalSize)
	assert.Equal(t, []byte("mp3:old"), tf.Data, "last committed unit wins")
}

func TestUnitAfterTrackDeleted(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(fakeTranscoder{}, nil)
	ctx := context.Background()

	_, err := p.Accept(ctx, f.track, []byte("abc"), "a.mp3", "audio/mpeg")
	require.NoError(t, err)

	_, err = f.db.DeleteMusicItem(ctx, f.track)
	require.NoError(t, err)

	f.sched.run(0)

	_, err = p.Fetch(ctx, f.track)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDispatcher(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	d := NewDispatcher(2, logger)

	var ran, active, peak int32
	for i := 0; i < 10; i++ {
		d.Schedule("unit", func(context.Context) {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			atomic.AddInt32(&ran, 1)
			atomic.AddInt32(&active, -1)
		})
	}
	d.Schedule("panics", func(context.Context) { panic("boom") })
	d.Wait()

	assert.Equal(t, int32(10), atomic.LoadInt32(&ran))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPipelineWithDispatcher(t *testing.T) {
	f := newFixture(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	d := NewDispatcher(1, logger)
	p := NewPipeline(f.db, d, fakeTranscoder{}, nil, logger)
	ctx := context.Background()

	_, err := p.Accept(ctx, f.track, []byte("payload"), "a.mp3", "audio/mpeg")
	require.NoError(t, err)
	d.Wait()

	tf, err := p.Fetch(ctx, f.track)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(tf.Data, []byte("mp3:")))
}
