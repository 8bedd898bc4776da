package curve

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FileExt is the extension of curve files.
const FileExt = ".curve"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create curve CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:      cbor.DupMapKeyQuiet,
		IndefLength:    cbor.IndefLengthAllowed,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create curve CBOR decoder mode: %v", err))
	}
}

// FileStore keeps one CBOR file per curve in a directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewFileStore creates the directory if needed and returns a store on it.
// A nil logger discards unreadable-file warnings.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create curve directory: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileStore{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the store directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Create writes a new curve file.
func (s *FileStore) Create(x, y []float64, attributes map[string]any) (Handle, error) {
	c, err := newCurve(x, y, attributes, s.now())
	if err != nil {
		return Handle{}, err
	}

	data, err := encMode.Marshal(c)
	if err != nil {
		return Handle{}, fmt.Errorf("encode curve: %w", err)
	}

	path := s.path(c.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("write curve: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Handle{}, fmt.Errorf("write curve: %w", err)
	}
	return c.Handle(), nil
}

// Load reads the curve with the given ID.
func (s *FileStore) Load(id string) (*Curve, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var c Curve
	if err := decMode.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode curve %s: %w", id, err)
	}
	return &c, nil
}

// List returns all readable curves, oldest first.
func (s *FileStore) List() ([]Handle, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var hs []Handle
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != FileExt {
			continue
		}
		c, err := s.Load(strings.TrimSuffix(name, FileExt))
		if err != nil {
			s.logger.Warn("skipping unreadable curve file", "file", name, "error", err)
			continue
		}
		hs = append(hs, c.Handle())
	}
	sortByCreated(hs)
	return hs, nil
}

// Delete removes a curve file.
func (s *FileStore) Delete(id string) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+FileExt)
}

// Compile-time interface satisfaction check.
var _ Sink = (*FileStore)(nil)
