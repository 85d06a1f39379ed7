package configwatcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cardlink/cardlink/pkg/session"
)

type recordingRetuner struct {
	mu      sync.Mutex
	tunings []session.Tuning
	ch      chan session.Tuning
}

func newRecordingRetuner() *recordingRetuner {
	return &recordingRetuner{ch: make(chan session.Tuning, 16)}
}

func (r *recordingRetuner) Retune(t session.Tuning) {
	r.mu.Lock()
	r.tunings = append(r.tunings, t)
	r.mu.Unlock()
	r.ch <- t
}

func (r *recordingRetuner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tunings)
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestPlugin_ReloadsOnWrite(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	writeConfig(t, path, `liveness_threshold = "5s"`)

	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	target := newRecordingRetuner()

	if err := plugin.Start(context.Background(), target, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer plugin.Shutdown()

	writeConfig(t, path, "liveness_threshold = \"8s\"\nretry_delay = \"3s\"\nmax_attempts = 4\n")

	// A reload may observe the truncated file first; wait for the final content.
	want := session.Tuning{LivenessThreshold: 8 * time.Second, RetryDelay: 3 * time.Second, MaxAttempts: 4}
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-target.ch:
			if got == want {
				return
			}
		case <-timeout:
			t.Fatal("config change not applied")
		}
	}
}

func TestPlugin_IgnoresOtherFiles(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	writeConfig(t, path, `max_attempts = 3`)

	plugin := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})
	target := newRecordingRetuner()
	if err := plugin.Start(context.Background(), target, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer plugin.Shutdown()

	writeConfig(t, filepath.Join(tmpDir, "other.toml"), `max_attempts = 9`)
	time.Sleep(150 * time.Millisecond)

	if n := target.count(); n != 0 {
		t.Errorf("Retune called %d times for an unrelated file", n)
	}
}

func TestPlugin_Debounce(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	writeConfig(t, path, `max_attempts = 1`)

	plugin := New(Config{Path: path, DebounceDelay: 100 * time.Millisecond})
	target := newRecordingRetuner()
	if err := plugin.Start(context.Background(), target, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer plugin.Shutdown()

	for i := 0; i < 5; i++ {
		writeConfig(t, path, `max_attempts = 7`)
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)

	if n := target.count(); n != 1 {
		t.Errorf("Retune called %d times, want 1", n)
	}
}

func TestPlugin_LoadError(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	writeConfig(t, path, "")

	loads := make(chan struct{}, 4)
	plugin := New(Config{
		Path:          path,
		DebounceDelay: 10 * time.Millisecond,
		Load: func(string) (session.Tuning, error) {
			loads <- struct{}{}
			return session.Tuning{}, errors.New("half written")
		},
	})
	target := newRecordingRetuner()
	if err := plugin.Start(context.Background(), target, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer plugin.Shutdown()

	writeConfig(t, path, "max_")
	select {
	case <-loads:
	case <-time.After(2 * time.Second):
		t.Fatal("loader not called")
	}
	time.Sleep(50 * time.Millisecond)
	if n := target.count(); n != 0 {
		t.Errorf("Retune called %d times after a failed load", n)
	}
}

func TestFileLoader_RespectsChangedFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "liveness_threshold = \"8s\"\nretry_delay = \"3s\"\n")

	got, err := FileLoader(map[string]bool{"liveness-threshold": true})(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.LivenessThreshold != 0 || got.RetryDelay != 3*time.Second {
		t.Errorf("tuning = %+v", got)
	}
}

func TestPlugin_NoPath(t *testing.T) {
	plugin := New(Config{})
	if err := plugin.Start(context.Background(), newRecordingRetuner(), nil); err != nil {
		t.Errorf("Start() error = %v", err)
	}
	plugin.Shutdown()
}

func TestPlugin_Name(t *testing.T) {
	if got := New(DefaultConfig("x")).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q", got)
	}
}
