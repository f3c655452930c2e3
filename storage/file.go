package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/teekernel/tee-partition-manager/interfaces"
)

// FileStore keeps persistent objects as files, each carrying a SHA-256
// integrity trailer over its payload. A trailer mismatch is reported as
// object corruption on access, never silently repaired.
type FileStore struct {
	dir string
	log *slog.Logger
}

var _ interfaces.ObjectStore = (*FileStore)(nil)

// NewFileStore creates a file-backed object store rooted at dir.
func NewFileStore(dir string, log *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create object directory: %w", err)
	}

	return &FileStore{dir: dir, log: log}, nil
}

// Resolve implements interfaces.ObjectStore.
func (s *FileStore) Resolve(name string) (interfaces.ObjectRef, error) {
	if name == "" {
		return nil, interfaces.ErrBadParameters
	}

	// object names are hex encoded so any byte sequence is a safe file name
	return &fileRef{
		path: filepath.Join(s.dir, hex.EncodeToString([]byte(name))),
		log:  s.log,
	}, nil
}

type fileRef struct {
	path string
	log  *slog.Logger
}

// loadFile reads and verifies an object file, reporting whether its
// integrity trailer matches the payload.
func loadFile(path string) (payload []byte, corrupt bool, err error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, interfaces.ErrObjectNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read object file: %w", err)
	}

	if len(raw) < sha256.Size {
		return nil, true, nil
	}

	payload = raw[:len(raw)-sha256.Size]
	sum := sha256.Sum256(payload)
	if !bytes.Equal(sum[:], raw[len(raw)-sha256.Size:]) {
		return nil, true, nil
	}

	return payload, false, nil
}

func persistFile(path string, payload []byte) error {
	sum := sha256.Sum256(payload)
	return os.WriteFile(path, append(append([]byte{}, payload...), sum[:]...), 0o600)
}

// Open implements interfaces.ObjectRef.
func (r *fileRef) Open() (interfaces.ObjectHandle, error) {
	payload, corrupt, err := loadFile(r.path)
	if err != nil {
		return nil, err
	}

	return &fileHandle{ref: r, payload: payload, corrupt: corrupt}, nil
}

// Create implements interfaces.ObjectRef.
func (r *fileRef) Create() (interfaces.ObjectHandle, error) {
	h, err := r.Open()
	if err == nil {
		return h, nil
	}
	if err != interfaces.ErrObjectNotFound {
		return nil, err
	}

	if err := persistFile(r.path, nil); err != nil {
		return nil, err
	}
	r.log.Debug("created object", slog.String("path", r.path))

	return &fileHandle{ref: r}, nil
}

// Remove implements interfaces.ObjectRef.
func (r *fileRef) Remove() error {
	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}

// Release implements interfaces.ObjectRef.
func (r *fileRef) Release() {}

type fileHandle struct {
	ref     *fileRef
	payload []byte
	corrupt bool
}

// ReadAt implements interfaces.ObjectHandle. Reads past the end of the
// payload return what exists without an error.
func (h *fileHandle) ReadAt(p []byte, off int64) (int, error) {
	if h.corrupt {
		return 0, interfaces.ErrCorruptObject
	}
	if off < 0 {
		return 0, interfaces.ErrBadParameters
	}
	if off >= int64(len(h.payload)) {
		return 0, nil
	}

	return copy(p, h.payload[off:]), nil
}

// WriteAt implements interfaces.ObjectHandle. The file and its trailer are
// rewritten on every write; the gap below off is zero filled when writing
// past the current end.
func (h *fileHandle) WriteAt(p []byte, off int64) (int, error) {
	if h.corrupt {
		return 0, interfaces.ErrCorruptObject
	}
	if off < 0 {
		return 0, interfaces.ErrBadParameters
	}

	if need := off + int64(len(p)); need > int64(len(h.payload)) {
		h.payload = append(h.payload, make([]byte, need-int64(len(h.payload)))...)
	}
	copy(h.payload[off:], p)

	if err := persistFile(h.ref.path, h.payload); err != nil {
		return 0, err
	}

	return len(p), nil
}

// Close implements interfaces.ObjectHandle.
func (h *fileHandle) Close() error { return nil }
