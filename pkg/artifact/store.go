// Package artifact persists invoice artifacts under a single local root.
//
// Every artifact is named from the vendor, the capture time at second
// resolution and the artifact kind:
//
//	<root>/<VENDOR>_<YYYYMMDD>_<HHMMSS>[_<suffix>]<ext>
//
// Writes go straight to the final path. A failed write can leave a partial
// file behind, and two artifacts of the same vendor and kind captured in
// the same second resolve to the same path; the later write wins.
package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adam-cain/auto-invoice/pkg/logging"
)

// DefaultRoot is the directory artifacts are written to when none is configured.
const DefaultRoot = "invoices"

// ChunkSize is the unit in which streamed bodies are copied to disk.
const ChunkSize = 8192

const (
	fileTimeLayout = "20060102_150405"

	// HeaderTimeLayout formats the extraction time in saved text artifacts.
	HeaderTimeLayout = "2006-01-02 15:04:05"
)

// ErrInvalidVendor is returned when a vendor name cannot be used in a file name.
var ErrInvalidVendor = errors.New("invalid vendor name")

// Kind identifies the fallback form an artifact was captured in.
type Kind string

const (
	KindFileDownload Kind = "file-download"
	KindTextContent  Kind = "text-content"
	KindScreenshot   Kind = "screenshot"
)

// Artifact describes one persisted invoice. Values are never mutated after
// creation and the files they point at are never deleted by this package.
type Artifact struct {
	Vendor    string    `json:"vendor"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	Bytes     int64     `json:"bytes"`
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source used for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger used for write diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// Store owns the artifact root directory.
type Store struct {
	root string
	now  func() time.Time
	log  *logging.Logger

	mu      sync.Mutex
	written []Artifact
}

// NewStore creates a store rooted at root, or DefaultRoot when root is empty.
func NewStore(root string, opts ...Option) *Store {
	if root == "" {
		root = DefaultRoot
	}
	s := &Store{
		root: root,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Discard("artifact")
	}
	return s
}

// Root returns the artifact root directory.
func (s *Store) Root() string {
	return s.root
}

// Now returns the store's current time, truncated to whole seconds.
func (s *Store) Now() time.Time {
	return s.now().Truncate(time.Second)
}

// EnsureRoot creates the root directory if it is missing. Calling it again
// is a no-op.
func (s *Store) EnsureRoot() error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create artifact root %s: %w", s.root, err)
	}
	return nil
}

// DeriveName builds the artifact for vendor captured now. ext is only used
// for KindFileDownload and defaults to ".pdf".
func (s *Store) DeriveName(vendor string, kind Kind, ext string) (Artifact, error) {
	return DeriveName(s.root, vendor, kind, ext, s.Now())
}

// DeriveName is the pure naming rule behind Store.DeriveName.
func DeriveName(root, vendor string, kind Kind, ext string, at time.Time) (Artifact, error) {
	safe, err := sanitizeVendor(vendor)
	if err != nil {
		return Artifact{}, err
	}

	var suffix string
	switch kind {
	case KindFileDownload:
		if ext == "" {
			ext = ".pdf"
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
	case KindTextContent:
		suffix, ext = "_content", ".txt"
	case KindScreenshot:
		suffix, ext = "_screenshot", ".png"
	default:
		return Artifact{}, fmt.Errorf("unknown artifact kind %q", kind)
	}

	name := fmt.Sprintf("%s_%s%s%s", safe, at.Format(fileTimeLayout), suffix, ext)
	return Artifact{
		Vendor:    vendor,
		Kind:      kind,
		Timestamp: at,
		Path:      filepath.Join(root, name),
	}, nil
}

// ExtFromURL returns the extension of the URL path, or ".pdf" when the path
// has none. Query strings and fragments are ignored.
func ExtFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if ext := path.Ext(p); ext != "" {
		return ext
	}
	return ".pdf"
}

func sanitizeVendor(vendor string) (string, error) {
	v := strings.TrimSpace(vendor)
	if v == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidVendor)
	}
	if strings.ContainsAny(v, `/\`) || v == "." || v == ".." {
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidVendor, vendor)
	}
	return strings.ReplaceAll(v, " ", "_"), nil
}

// Reserve ensures the root exists and derives the artifact for a file that
// another component (the browser engine) will write itself. Call Record
// once that write succeeded.
func (s *Store) Reserve(vendor string, kind Kind, ext string) (Artifact, error) {
	if err := s.EnsureRoot(); err != nil {
		return Artifact{}, err
	}
	return s.DeriveName(vendor, kind, ext)
}

// Record registers an artifact written outside the store.
func (s *Store) Record(a Artifact) {
	if info, err := os.Stat(a.Path); err == nil {
		a.Bytes = info.Size()
	}
	s.mu.Lock()
	s.written = append(s.written, a)
	s.mu.Unlock()
	s.log.Infof("Recorded %s artifact for %s at %s (%d bytes)", a.Kind, a.Vendor, a.Path, a.Bytes)
}

// WriteStream copies r into the artifact path in ChunkSize pieces through a
// buffered writer. The file is created or truncated in place.
func (s *Store) WriteStream(a Artifact, r io.Reader) (Artifact, error) {
	if err := s.EnsureRoot(); err != nil {
		return a, err
	}

	f, err := os.Create(a.Path)
	if err != nil {
		return a, fmt.Errorf("failed to create %s: %w", a.Path, err)
	}

	w := bufio.NewWriterSize(f, ChunkSize)
	// Plain Writer and Reader wrappers keep CopyBuffer off the ReaderFrom and
	// WriterTo fast paths so the copy really moves ChunkSize pieces.
	n, err := io.CopyBuffer(struct{ io.Writer }{w}, struct{ io.Reader }{r}, make([]byte, ChunkSize))
	if flushErr := w.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		f.Close()
		s.log.Errorf("Partial write to %s after %d bytes: %v", a.Path, n, err)
		return a, fmt.Errorf("failed to write %s: %w", a.Path, err)
	}
	if err := f.Close(); err != nil {
		return a, fmt.Errorf("failed to close %s: %w", a.Path, err)
	}

	a.Bytes = n
	s.append(a)
	return a, nil
}

// WriteText writes text to the artifact path verbatim.
func (s *Store) WriteText(a Artifact, text string) (Artifact, error) {
	return s.WriteStream(a, strings.NewReader(text))
}

// Written returns every artifact the store has written or recorded, in order.
func (s *Store) Written() []Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, len(s.written))
	copy(out, s.written)
	return out
}

func (s *Store) append(a Artifact) {
	s.mu.Lock()
	s.written = append(s.written, a)
	s.mu.Unlock()
	s.log.Infof("Wrote %s artifact for %s at %s (%d bytes)", a.Kind, a.Vendor, a.Path, a.Bytes)
}
