// Package media identifies uploaded audio and re-encodes it with ffmpeg.
package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// Format is an identified audio container
type Format string

const (
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
	FormatWAV  Format = "wav"
	FormatM4A  Format = "m4a"
)

// DefaultFormats lists the file extensions accepted for upload and ingest
var DefaultFormats = []string{".mp3", ".flac", ".wav", ".m4a"}

// ErrUnsupportedFormat is returned when the payload is not recognizable audio
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Info describes a probed audio payload
type Info struct {
	Format          Format
	DurationSeconds int
	Title           string
	Artist          string
}

// Prober inspects in-memory audio payloads
type Prober struct {
	supportedFormats []string
	logger           *logrus.Logger
}

// NewProber creates a prober accepting the given extensions
func NewProber(supportedFormats []string, logger *logrus.Logger) *Prober {
	if len(supportedFormats) == 0 {
		supportedFormats = DefaultFormats
	}
	return &Prober{supportedFormats: supportedFormats, logger: logger}
}

// Probe identifies the container of data and reads its duration. Tags are
// read on a best-effort basis.
func (p *Prober) Probe(data []byte) (Info, error) {
	format, err := identify(data)
	if err != nil {
		return Info{}, err
	}

	info := Info{Format: format}
	switch format {
	case FormatMP3:
		info.DurationSeconds, err = durationMP3(data)
	case FormatFLAC:
		info.DurationSeconds, err = durationFLAC(data)
	case FormatWAV:
		info.DurationSeconds, err = durationWAV(data)
	case FormatM4A:
		info.DurationSeconds, err = durationM4A(data)
	}
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode %s: %w", format, err)
	}

	if m, err := tag.ReadFrom(bytes.NewReader(data)); err == nil {
		info.Title = m.Title()
		info.Artist = m.Artist()
	}

	p.logger.WithFields(logrus.Fields{
		"format":   info.Format,
		"duration": info.DurationSeconds,
		"size":     len(data),
	}).Debug("Probed audio payload")

	return info, nil
}

// IsAudioFile checks if a file name has a supported audio extension
func (p *Prober) IsAudioFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, format := range p.supportedFormats {
		if ext == format {
			return true
		}
	}
	return false
}

// ContentType returns the MIME type for an audio file name
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	default:
		return "application/octet-stream"
	}
}

func identify(data []byte) (Format, error) {
	if len(data) < 12 {
		return "", ErrUnsupportedFormat
	}

	if wav.NewDecoder(bytes.NewReader(data)).IsValidFile() {
		return FormatWAV, nil
	}

	_, fileType, err := tag.Identify(bytes.NewReader(data))
	if err == nil {
		switch fileType {
		case tag.MP3:
			return FormatMP3, nil
		case tag.FLAC:
			return FormatFLAC, nil
		case tag.M4A, tag.M4B, tag.ALAC:
			return FormatM4A, nil
		}
	}

	// Bare MPEG audio without an ID3 header starts with a frame sync.
	if data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3, nil
	}
	return "", ErrUnsupportedFormat
}

func durationMP3(data []byte) (int, error) {
	dec := mp3.NewDecoder(bytes.NewReader(data))
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) && frames > 0 {
				break
			}
			if frames == 0 {
				return 0, fmt.Errorf("no mpeg frames: %w", err)
			}
			break
		}
		total += fr.Duration()
		frames++
	}
	return int(total.Seconds()), nil
}

// FLAC duration via STREAMINFO metadata block
func durationFLAC(data []byte) (int, error) {
	stream, err := flac.Parse(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	si := stream.Info
	if si.NSamples > 0 && si.SampleRate > 0 {
		secs := float64(si.NSamples) / float64(si.SampleRate)
		return int(secs + 0.5), nil
	}
	return 0, fmt.Errorf("flac stream missing sample info")
}

func durationWAV(data []byte) (int, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("invalid wav file")
	}
	d, err := dec.Duration()
	if err != nil {
		return 0, err
	}
	return int(d.Seconds() + 0.5), nil
}

// durationM4A reads timescale and duration from the moov/mvhd atom.
func durationM4A(data []byte) (int, error) {
	r := bytes.NewReader(data)
	head := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, head); err != nil {
			return 0, fmt.Errorf("mvhd atom not found: %w", err)
		}
		size := int64(binary.BigEndian.Uint32(head[0:4]))
		if size < 8 {
			return 0, fmt.Errorf("invalid atom size")
		}
		if string(head[4:8]) != "moov" {
			if _, err := r.Seek(size-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}

		for read := int64(8); read < size; {
			if _, err := io.ReadFull(r, head); err != nil {
				return 0, err
			}
			subSize := int64(binary.BigEndian.Uint32(head[0:4]))
			if subSize < 8 {
				return 0, fmt.Errorf("invalid sub-atom size")
			}
			if string(head[4:8]) == "mvhd" {
				return readMVHD(r)
			}
			if _, err := r.Seek(subSize-8, io.SeekCurrent); err != nil {
				return 0, err
			}
			read += subSize
		}
		return 0, fmt.Errorf("mvhd atom not found")
	}
}

func readMVHD(r io.ReadSeeker) (int, error) {
	version := make([]byte, 1)
	if _, err := io.ReadFull(r, version); err != nil {
		return 0, err
	}

	skip := int64(3 + 4 + 4)
	if version[0] == 1 {
		skip = 3 + 8 + 8
	}
	if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
		return 0, err
	}

	var timescale uint32
	if err := binary.Read(r, binary.BigEndian, &timescale); err != nil {
		return 0, err
	}
	if timescale == 0 {
		return 0, fmt.Errorf("invalid timescale")
	}

	var units uint64
	if version[0] == 1 {
		if err := binary.Read(r, binary.BigEndian, &units); err != nil {
			return 0, err
		}
	} else {
		var u32 uint32
		if err := binary.Read(r, binary.BigEndian, &u32); err != nil {
			return 0, err
		}
		units = uint64(u32)
	}
	return int(float64(units)/float64(timescale) + 0.5), nil
}
