package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	tmpLogName = ".installer.tmp"
	logExt     = ".log"
)

// Store streams the output of one installer run to a temporary file.
// The file is persisted only when the run fails.
type Store struct {
	baseDir    string
	sessionDir string
	mu         sync.Mutex
	dirCreated bool
	file       *os.File
	step       string
	version    string
}

// NewStore creates a Store with a new timestamped session under baseDir.
func NewStore(baseDir string) *Store {
	sessionID := time.Now().Format("20060102T150405")
	return &Store{
		baseDir:    baseDir,
		sessionDir: filepath.Join(baseDir, sessionID),
	}
}

func (s *Store) ensureSessionDir() error {
	if s.dirCreated {
		return nil
	}
	if err := os.MkdirAll(s.sessionDir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	s.dirCreated = true
	return nil
}

// Start begins recording output for a step such as "installer".
func (s *Store) Start(step, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeFile()
	if err := s.ensureSessionDir(); err != nil {
		slog.Warn("failed to create log session directory", "error", err)
		return
	}

	f, err := os.Create(filepath.Join(s.sessionDir, tmpLogName))
	if err != nil {
		slog.Warn("failed to create log temp file", "error", err)
		return
	}
	s.file = f
	s.step = step
	s.version = version
}

// Record appends one output line. Its signature matches command.OutputCallback.
func (s *Store) Record(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return
	}
	if _, err := fmt.Fprintln(s.file, line); err != nil {
		slog.Warn("failed to write log output", "step", s.step, "error", err)
	}
}

// Complete discards the recorded output.
func (s *Store) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeFile()
}

// Fail persists the recorded output with err in its header and returns the
// path of the written log file.
func (s *Store) Fail(err error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return "", nil
	}

	if _, serr := s.file.Seek(0, io.SeekStart); serr != nil {
		return "", serr
	}
	output, rerr := io.ReadAll(s.file)
	if rerr != nil {
		return "", fmt.Errorf("failed to read tmp log: %w", rerr)
	}

	logPath := filepath.Join(s.sessionDir, s.step+logExt)
	content := buildLogContent(s.step, s.version, err, string(output))
	if werr := os.WriteFile(logPath, []byte(content), 0644); werr != nil {
		return "", fmt.Errorf("failed to write log for %s: %w", s.step, werr)
	}
	s.closeFile()
	return logPath, nil
}

// Close removes the temporary file and the session directory when no log
// was persisted.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeFile()
	if s.dirCreated {
		s.removeIfEmpty()
	}
}

func (s *Store) closeFile() {
	if s.file == nil {
		return
	}
	name := s.file.Name()
	s.file.Close()
	os.Remove(name)
	s.file = nil
}

func (s *Store) removeIfEmpty() {
	entries, err := os.ReadDir(s.sessionDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), logExt) {
			return
		}
	}
	os.RemoveAll(s.sessionDir)
}

// SessionDir returns the path to the current session directory.
func (s *Store) SessionDir() string {
	return s.sessionDir
}

// Cleanup removes old session directories, keeping the most recent keepSessions.
func (s *Store) Cleanup(keepSessions int) error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read logs directory: %w", err)
	}

	var dirs []os.DirEntry
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e)
		}
	}
	if len(dirs) <= keepSessions {
		return nil
	}

	// Session names are timestamps.
	sort.Slice(dirs, func(i, j int) bool {
		return dirs[i].Name() < dirs[j].Name()
	})

	for _, d := range dirs[:len(dirs)-keepSessions] {
		if err := os.RemoveAll(filepath.Join(s.baseDir, d.Name())); err != nil {
			return fmt.Errorf("failed to remove old session %s: %w", d.Name(), err)
		}
	}
	return nil
}

func buildLogContent(step, version string, err error, output string) string {
	var b strings.Builder
	fmt.Fprintln(&b, "# setup-qt log")
	fmt.Fprintf(&b, "# Step: %s\n", step)
	fmt.Fprintf(&b, "# Version: %s\n", version)
	fmt.Fprintf(&b, "# Timestamp: %s\n", time.Now().Format(time.RFC3339))
	if err != nil {
		fmt.Fprintf(&b, "# Error: %v\n", err)
	}
	b.WriteByte('\n')
	b.WriteString(output)
	return b.String()
}
