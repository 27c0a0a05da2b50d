package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrCorruptDocument is returned by reads when the session document exists
// but cannot be decoded. Writes replace such a document instead of failing.
var ErrCorruptDocument = errors.New("storage: corrupt session document")

// File persists values in a single JSON document on disk. Writes go through a
// temp file and rename so a crash never leaves a truncated document behind.
type File struct {
	path string
	log  logrus.FieldLogger
	mu   sync.Mutex
}

// FileOption configures a File.
type FileOption func(*File)

// WithFileLogger sets the logger used to report a replaced corrupt document.
func WithFileLogger(log logrus.FieldLogger) FileOption {
	return func(f *File) {
		if log != nil {
			f.log = log
		}
	}
}

type fileDocument struct {
	Instance  string            `json:"instance"`
	UpdatedAt time.Time         `json:"updated_at"`
	Values    map[string]string `json:"values"`
}

// NewFile returns a File backend rooted at path. The parent directory is
// created on first write.
func NewFile(path string, opts ...FileOption) (*File, error) {
	if path == "" {
		return nil, errors.New("storage: file path required")
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	f := &File{path: filepath.Clean(path), log: discard}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Path returns the document location.
func (f *File) Path() string {
	return f.path
}

// Instance returns the identifier stamped into the document on its first
// write, or "" if nothing was written yet.
func (f *File) Instance() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", err
	}
	return doc.Instance, nil
}

func (f *File) Load(_ context.Context, key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.read()
	if err != nil {
		return "", false, err
	}
	v, ok := doc.Values[key]
	return v, ok, nil
}

func (f *File) Save(_ context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, _, err := f.readForWrite()
	if err != nil {
		return err
	}
	doc.Values[key] = value
	return f.write(doc)
}

func (f *File) Clear(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, replaced, err := f.readForWrite()
	if err != nil {
		return err
	}
	if _, ok := doc.Values[key]; !ok && !replaced {
		return nil
	}
	delete(doc.Values, key)
	return f.write(doc)
}

func (f *File) read() (*fileDocument, error) {
	doc := &fileDocument{Values: map[string]string{}}

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptDocument, f.path, err)
	}
	if doc.Values == nil {
		doc.Values = map[string]string{}
	}
	return doc, nil
}

// readForWrite is read for Save and Clear. A corrupt document yields an empty
// one and replaced=true, so the caller's write overwrites it.
func (f *File) readForWrite() (doc *fileDocument, replaced bool, err error) {
	doc, err = f.read()
	if errors.Is(err, ErrCorruptDocument) {
		f.log.WithError(err).WithField("path", f.path).Warn("replacing corrupt session document")
		return &fileDocument{Values: map[string]string{}}, true, nil
	}
	return doc, false, err
}

func (f *File) write(doc *fileDocument) error {
	if doc.Instance == "" {
		doc.Instance = uuid.NewString()
	}
	doc.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("storage: create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("storage: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}
