package recorder

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// FileRecorder records events to a file as JSON lines with optional compression
type FileRecorder struct {
	file            *os.File
	writer          io.Writer
	bufWriter       *bufio.Writer
	path            string
	compressionType CompressionType
	eventCount      int
}

// FileRecorderOptions contains options for creating a file recorder
type FileRecorderOptions struct {
	CompressionType CompressionType
}

// DefaultFileRecorderOptions returns default options for file recorder
func DefaultFileRecorderOptions() FileRecorderOptions {
	return FileRecorderOptions{
		CompressionType: DefaultCompression,
	}
}

// NewFileRecorder creates a new file recorder with default options
func NewFileRecorder(path string) (*FileRecorder, error) {
	return NewFileRecorderWithOptions(path, DefaultFileRecorderOptions())
}

// NewFileRecorderWithOptions creates a new file recorder with the given options
func NewFileRecorderWithOptions(path string, options FileRecorderOptions) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening trace %s", path)
	}

	bufWriter := bufio.NewWriter(f)
	compressedWriter := NewCompressedWriter(bufWriter, options.CompressionType)

	return &FileRecorder{
		file:            f,
		writer:          compressedWriter,
		bufWriter:       bufWriter,
		path:            path,
		compressionType: options.CompressionType,
	}, nil
}

// Path is the file events are written to.
func (fr *FileRecorder) Path() string { return fr.path }

// RecordEvent writes an event to the file
func (fr *FileRecorder) RecordEvent(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "encoding event %d", e.ID)
	}
	data = append(data, '\n')

	if _, err := fr.writer.Write(data); err != nil {
		return errors.Wrapf(err, "writing %s", fr.path)
	}

	// zstd buffers a whole block; flush it so a killed fixture still leaves
	// every event it reached on disk
	if f, ok := fr.writer.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return errors.Wrapf(err, "flushing %s", fr.path)
		}
	}
	if err := fr.bufWriter.Flush(); err != nil {
		return errors.Wrapf(err, "flushing %s", fr.path)
	}

	fr.eventCount++
	return nil
}

// Count is the number of events written since the recorder was opened or cleared.
func (fr *FileRecorder) Count() int { return fr.eventCount }

// GetEvents reads all events from the file, decompressing if necessary
func (fr *FileRecorder) GetEvents() []Event {
	// Ensure data is flushed to disk
	CloseCompressedWriter(fr.writer, fr.compressionType)
	fr.bufWriter.Flush()

	events, _ := LoadFile(fr.path)

	// Reopen the writer since we closed it
	fr.writer = NewCompressedWriter(fr.bufWriter, fr.compressionType)

	return events
}

// Clear clears the file and resets the recorder
func (fr *FileRecorder) Clear() {
	// Ignore errors in Clear() as per interface
	CloseCompressedWriter(fr.writer, fr.compressionType)
	fr.bufWriter.Flush()
	fr.file.Close()
	os.Truncate(fr.path, 0)

	// Reopen the file
	f, err := os.OpenFile(fr.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		fr.file = f
		fr.bufWriter = bufio.NewWriter(f)
		fr.writer = NewCompressedWriter(fr.bufWriter, fr.compressionType)
		fr.eventCount = 0
	}
}

// Close flushes and closes the file
func (fr *FileRecorder) Close() error {
	if err := CloseCompressedWriter(fr.writer, fr.compressionType); err != nil {
		return errors.Wrapf(err, "closing compressor for %s", fr.path)
	}

	if err := fr.bufWriter.Flush(); err != nil {
		return errors.Wrapf(err, "flushing %s", fr.path)
	}

	return fr.file.Close()
}

// LoadFile reads a trace written by a FileRecorder. Compression is detected
// from the content.
func LoadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening trace %s", path)
	}
	defer f.Close()

	events, err := ReadEvents(f)
	return events, errors.Wrapf(err, "reading trace %s", path)
}

// ReadEvents decodes JSON-lines events from r, which may be zstd-compressed.
// Lines that do not decode are skipped, as is a truncated final frame.
func ReadEvents(r io.Reader) ([]Event, error) {
	br := bufio.NewReader(r)
	compression := NoCompression
	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		compression = ZstdCompression
	}

	reader, err := NewCompressedReader(br, compression)
	if err != nil {
		return nil, err
	}

	var events []Event
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	// a trace whose writer was killed ends in an unterminated frame
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return events, err
	}
	return events, nil
}
