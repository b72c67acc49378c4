package log

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestFileLoggerCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test"+FileExt)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("log file was not created")
	}
}

func TestFileLoggerWritesCBOR(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test"+FileExt)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	event := Event{
		Timestamp: time.Now(),
		SessionID: "session-123",
		Direction: DirectionIn,
		Layer:     LayerBond,
		Category:  CategoryNotification,
		Bond:      &BondEvent{Type: "STATE_CHANGED", State: "BONDED"},
	}
	logger.Log(event)
	logger.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open log file: %v", err)
	}
	defer f.Close()

	decoder := NewDecoder(f)
	header, err := readHeader(decoder)
	if err != nil {
		t.Fatalf("failed to read header: %v", err)
	}
	if header.Magic != fileMagic || header.Version != FileVersion {
		t.Errorf("header: got %+v", header)
	}
	var decoded Event
	if err := decoder.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}

	if decoded.SessionID != event.SessionID {
		t.Errorf("SessionID: got %q, want %q", decoded.SessionID, event.SessionID)
	}
	if decoded.Bond == nil || decoded.Bond.State != "BONDED" {
		t.Errorf("Bond: got %+v", decoded.Bond)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test"+FileExt)

	for _, id := range []string{"s-1", "s-2"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{Timestamp: time.Now(), SessionID: id})
		logger.Close()
	}

	events := readAll(t, path, Filter{})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].SessionID != "s-1" || events[1].SessionID != "s-2" {
		t.Errorf("SessionIDs: got %q, %q", events[0].SessionID, events[1].SessionID)
	}
}

func TestFileLoggerThreadSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test"+FileExt)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const goroutines = 10
	const perGoroutine = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				logger.Log(Event{
					Timestamp: time.Now(),
					SessionID: fmt.Sprintf("s-%d", id),
					Layer:     LayerSession,
					Category:  CategoryState,
				})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	decoder := NewDecoder(bytes.NewReader(data))
	if _, err := readHeader(decoder); err != nil {
		t.Fatalf("failed to read header: %v", err)
	}
	count := 0
	for {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			break
		}
		count++
	}

	if count != goroutines*perGoroutine {
		t.Errorf("event count: got %d, want %d", count, goroutines*perGoroutine)
	}
	if logger.Dropped() != 0 {
		t.Errorf("dropped %d events", logger.Dropped())
	}
}

func TestFileLoggerClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test"+FileExt)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{Timestamp: time.Now(), SessionID: "before"})

	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Ignored after close.
	logger.Log(Event{Timestamp: time.Now(), SessionID: "after"})

	events := readAll(t, path, Filter{})
	if len(events) != 1 || events[0].SessionID != "before" {
		t.Errorf("events after close: %+v", events)
	}
}

func TestFileLoggerWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test"+FileExt)

	for range 2 {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{Timestamp: time.Now(), SessionID: "s"})
		logger.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	decoder := NewDecoder(bytes.NewReader(data))
	if _, err := readHeader(decoder); err != nil {
		t.Fatalf("failed to read header: %v", err)
	}
	for i := 0; i < 2; i++ {
		var event Event
		if err := decoder.Decode(&event); err != nil {
			t.Fatalf("record %d is not an event: %v", i+1, err)
		}
	}
}

func TestReaderRejectsHeaderlessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw"+FileExt)
	data, err := EncodeEvent(Event{Timestamp: time.Now(), SessionID: "s"})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewReader(path); !errors.Is(err, ErrNotProtocolLog) {
		t.Errorf("NewReader error = %v, want ErrNotProtocolLog", err)
	}
}

func TestReaderRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future"+FileExt)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	h := newHeader(time.Now())
	h.Version = FileVersion + 1
	if err := NewEncoder(f).Encode(h); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := NewReader(path); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("NewReader error = %v, want ErrUnsupportedVersion", err)
	}
}

func TestReaderEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty"+FileExt)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next on empty file = %v, want io.EOF", err)
	}
	if r.Header().Version != 0 {
		t.Errorf("empty file header: got %+v", r.Header())
	}
}

func TestReaderHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test"+FileExt)
	before := time.Now().Add(-time.Second)

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer r.Close()

	h := r.Header()
	if h.Version != FileVersion {
		t.Errorf("Version: got %d, want %d", h.Version, FileVersion)
	}
	if h.Created.Before(before) {
		t.Errorf("Created: got %v, want after %v", h.Created, before)
	}
}
