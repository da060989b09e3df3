package source

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/edsrzf/mmap-go"

	"github.com/dshills/textscan/internal/charset"
	"github.com/dshills/textscan/internal/engine"
	"github.com/dshills/textscan/internal/window"
	"github.com/dshills/textscan/pkg/types"
)

// Fingerprint identifies the content of a file at one point in time
type Fingerprint struct {
	Path    string
	Hash    [32]byte
	ModTime time.Time
	Size    int64
}

// Open opens a file for scanning
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}
	return f, nil
}

// mappedFile serves reads from a read-only memory mapping
type mappedFile struct {
	*bytes.Reader
	data mmap.MMap
	file *os.File
}

func (m *mappedFile) Close() error {
	unmapErr := m.data.Unmap()
	closeErr := m.file.Close()
	return errors.Join(unmapErr, closeErr)
}

// OpenMapped opens a file through a read-only memory mapping.
// Empty files cannot be mapped and are served from an empty reader.
func OpenMapped(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapOpenError(path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		_ = f.Close()
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &mappedFile{
		Reader: bytes.NewReader(data),
		data:   data,
		file:   f,
	}, nil
}

// Hash computes the SHA-256 fingerprint of a file
func Hash(path string) (Fingerprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, wrapOpenError(path, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return Fingerprint{}, err
	}
	if info.IsDir() {
		return Fingerprint{}, fmt.Errorf("%w: %s is a directory", types.ErrSourceNotFound, path)
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %s: %w", types.ErrSourceRead, path, err)
	}

	fp := Fingerprint{
		Path:    path,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}
	copy(fp.Hash[:], hash.Sum(nil))
	return fp, nil
}

// HashingReader hashes everything read through it
type HashingReader struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewHashingReader wraps r with a SHA-256 hasher
func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{r: r, h: sha256.New()}
}

func (hr *HashingReader) Read(p []byte) (int, error) {
	n, err := hr.r.Read(p)
	hr.h.Write(p[:n])
	hr.n += int64(n)
	return n, err
}

// Sum drains whatever the caller left unread and returns the hash and size
// of the whole stream
func (hr *HashingReader) Sum() ([32]byte, int64, error) {
	var sum [32]byte
	if _, err := io.Copy(io.Discard, hr); err != nil {
		return sum, hr.n, err
	}
	copy(sum[:], hr.h.Sum(nil))
	return sum, hr.n, nil
}

// Copy copies src to dst one window at a time and returns the bytes written
func Copy(src, dst string) (int64, error) {
	in, err := Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dst, err)
	}

	var written int64
	reader := window.NewReader(in, window.DefaultCapacity)
	for {
		buf, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = out.Close()
			return written, err
		}
		n, err := out.Write(buf)
		written += int64(n)
		if err != nil {
			_ = out.Close()
			return written, fmt.Errorf("write %s: %w", dst, err)
		}
	}

	return written, out.Close()
}

// WriteString encodes content with the named encoding and writes it to path,
// replacing any existing file
func WriteString(path, content, encodingName string) error {
	data, err := charset.Encode(content, encodingName)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadString decodes the whole file at path with the engine's encoding
func ReadString(path string, eng *engine.Engine) (string, error) {
	f, err := Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	return eng.ReadAll(f)
}

func wrapOpenError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", types.ErrSourceNotFound, path)
	}
	return fmt.Errorf("%w: %s: %w", types.ErrSourceNotFound, path, err)
}
