package recorder

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func sampleEvents() []Event {
	return []Event{
		{
			ID:        1,
			Timestamp: time.Now(),
			Type:      RunStarted,
			RunID:     "run-1",
			Variant:   "basic",
			Tag:       "loupe",
			Args:      []string{"basic"},
		},
		{
			ID:         2,
			Timestamp:  time.Now(),
			Type:       CheckpointReached,
			RunID:      "run-1",
			Variant:    "basic",
			Checkpoint: "test_int",
			Ordinal:    1,
			File:       "units.go",
			Line:       76,
			Vars:       []VarRecord{{Name: "one", Type: "int32", Kind: "int", Value: "1"}},
		},
		{
			ID:        3,
			Timestamp: time.Now(),
			Type:      RunFinished,
			RunID:     "run-1",
			Variant:   "basic",
			Outcome:   "completed",
		},
	}
}

func TestInMemoryRecorder(t *testing.T) {
	recorder := NewInMemoryRecorder()

	events := recorder.GetEvents()
	if len(events) != 0 {
		t.Errorf("Expected 0 events initially, got %d", len(events))
	}

	testEvents := sampleEvents()
	for _, event := range testEvents {
		if err := recorder.RecordEvent(event); err != nil {
			t.Errorf("Unexpected error recording event: %v", err)
		}
	}

	events = recorder.GetEvents()
	if len(events) != len(testEvents) {
		t.Fatalf("Expected %d events, got %d", len(testEvents), len(events))
	}
	for i, event := range events {
		if event.ID != testEvents[i].ID {
			t.Errorf("Event %d: expected ID %d, got %d", i, testEvents[i].ID, event.ID)
		}
		if event.Type != testEvents[i].Type {
			t.Errorf("Event %d: expected Type %v, got %v", i, testEvents[i].Type, event.Type)
		}
		if event.Checkpoint != testEvents[i].Checkpoint {
			t.Errorf("Event %d: expected Checkpoint %q, got %q", i, testEvents[i].Checkpoint, event.Checkpoint)
		}
	}

	// GetEvents returns a copy
	events[0].ID = 99
	if recorder.GetEvents()[0].ID != 1 {
		t.Errorf("GetEvents exposed internal storage")
	}

	recorder.Clear()
	if events := recorder.GetEvents(); len(events) != 0 {
		t.Errorf("Expected 0 events after clearing, got %d", len(events))
	}
}

func TestFileRecorder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl.zst")

	recorder, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("Failed to create file recorder: %v", err)
	}

	testEvents := sampleEvents()
	for _, event := range testEvents {
		if err := recorder.RecordEvent(event); err != nil {
			t.Errorf("Unexpected error recording event: %v", err)
		}
	}
	if recorder.Count() != len(testEvents) {
		t.Errorf("Expected count %d, got %d", len(testEvents), recorder.Count())
	}
	if err := recorder.Close(); err != nil {
		t.Errorf("Unexpected error closing recorder: %v", err)
	}

	readRecorder, err := NewFileRecorder(path)
	if err != nil {
		t.Fatalf("Failed to create read recorder: %v", err)
	}
	defer readRecorder.Close()

	events := readRecorder.GetEvents()
	if len(events) != len(testEvents) {
		t.Fatalf("Expected %d events, got %d", len(testEvents), len(events))
	}
	for i := range testEvents {
		if events[i].ID != testEvents[i].ID {
			t.Errorf("Event %d: expected ID %d, got %d", i, testEvents[i].ID, events[i].ID)
		}
		if events[i].Type != testEvents[i].Type {
			t.Errorf("Event %d: expected Type %v, got %v", i, testEvents[i].Type, events[i].Type)
		}
	}
	if len(events[1].Vars) != 1 || events[1].Vars[0].Value != "1" {
		t.Errorf("Vars did not survive the round trip: %+v", events[1].Vars)
	}

	readRecorder.Clear()
	fileInfo, err := os.Stat(path)
	if err != nil {
		t.Errorf("Unexpected error checking file: %v", err)
	}
	if fileInfo.Size() != 0 {
		t.Errorf("Expected empty file after clearing, got size %d", fileInfo.Size())
	}
}

func TestFileRecorderWithOptions(t *testing.T) {
	for _, compressionType := range []CompressionType{NoCompression, ZstdCompression} {
		t.Run(compressionType.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "trace")
			recorder, err := NewFileRecorderWithOptions(path, FileRecorderOptions{CompressionType: compressionType})
			if err != nil {
				t.Fatalf("Failed to create recorder: %v", err)
			}

			event := Event{ID: 1, Timestamp: time.Now(), Type: ValueEmitted, Details: "with " + compressionType.String()}
			if err := recorder.RecordEvent(event); err != nil {
				t.Errorf("Failed to record event: %v", err)
			}

			// events are on disk before Close
			events, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if len(events) != 1 || events[0].Details != event.Details {
				t.Errorf("Expected the flushed event, got %+v", events)
			}

			if err := recorder.Close(); err != nil {
				t.Errorf("Failed to close recorder: %v", err)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected an error for a missing trace")
	}
}

func TestDefaultFileRecorderOptions(t *testing.T) {
	options := DefaultFileRecorderOptions()
	if options.CompressionType != DefaultCompression {
		t.Errorf("Expected default compression type %v, got %v", DefaultCompression, options.CompressionType)
	}
}
