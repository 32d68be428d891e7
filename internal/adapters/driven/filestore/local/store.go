// Package local keeps per-file work directories on the local disk:
//
//	{root}/{fileId}/original.pdf
//	{root}/{fileId}/meta.json
//	{root}/{fileId}/output.md
//	{root}/{fileId}/images/
//	{root}/global_index/
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/sea-rag/internal/core/domain"
	"github.com/custodia-labs/sea-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.FileStore = (*Store)(nil)

// File and directory names inside the data root.
const (
	IndexDirName   = "global_index"
	originalName   = "original.pdf"
	metaName       = "meta.json"
	markdownName   = "output.md"
	imagesDirName  = "images"
	dirPermissions = 0o755
)

// Store is a driven.FileStore rooted at one data directory.
type Store struct {
	root string
}

// New creates the data root if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("data root: %w", domain.ErrNotConfigured)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve data root: %w", err)
	}
	if err := os.MkdirAll(abs, dirPermissions); err != nil {
		return nil, fmt.Errorf("create data root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute data root.
func (s *Store) Root() string {
	return s.root
}

// validID rejects ids that are not a single path element, and the index
// directory itself.
func validID(fileID string) bool {
	return fileID != "" &&
		fileID != "." && fileID != ".." &&
		fileID != IndexDirName &&
		!strings.ContainsAny(fileID, `/\`)
}

func (s *Store) workDir(fileID string) (string, error) {
	if !validID(fileID) {
		return "", fmt.Errorf("file id %q: %w", fileID, domain.ErrInvalidInput)
	}
	return filepath.Join(s.root, fileID), nil
}

func (s *Store) path(fileID, name string) (string, error) {
	dir, err := s.workDir(fileID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// SaveOriginal writes the uploaded PDF and returns its path.
func (s *Store) SaveOriginal(_ context.Context, fileID string, content []byte) (string, error) {
	dest, err := s.path(fileID, originalName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), dirPermissions); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	if err := writeAtomic(dest, content); err != nil {
		return "", err
	}
	return dest, nil
}

// ImportOriginal copies a PDF from disk into the work directory.
func (s *Store) ImportOriginal(ctx context.Context, fileID, srcPath string) (string, error) {
	dest, err := s.path(fileID, originalName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), dirPermissions); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".original-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src}); err != nil {
		tmp.Close()
		return "", fmt.Errorf("copy %s: %w", filepath.Base(srcPath), err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("replace original: %w", err)
	}
	return dest, nil
}

// OriginalPath returns the stored PDF path. Invalid ids yield a path that
// never exists.
func (s *Store) OriginalPath(fileID string) string {
	p, err := s.path(fileID, originalName)
	if err != nil {
		return filepath.Join(s.root, ".invalid", originalName)
	}
	return p
}

// ImagesDir returns the images directory, creating it if needed.
func (s *Store) ImagesDir(fileID string) (string, error) {
	dir, err := s.path(fileID, imagesDirName)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("create images dir: %w", err)
	}
	return dir, nil
}

// ResolveImage joins name onto the images directory and rejects results
// that escape it.
func (s *Store) ResolveImage(fileID, name string) (string, error) {
	dir, err := s.path(fileID, imagesDirName)
	if err != nil {
		return "", err
	}

	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("image %q: %w", name, domain.ErrForbiddenPath)
	}

	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("image %q: %w", name, domain.ErrNotFound)
	}
	return target, nil
}

// ListImages returns the file names in the images directory.
func (s *Store) ListImages(fileID string) ([]string, error) {
	dir, err := s.path(fileID, imagesDirName)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read images dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// WriteMarkdown stores the page-annotated body.
func (s *Store) WriteMarkdown(_ context.Context, fileID, body string) error {
	dest, err := s.path(fileID, markdownName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), dirPermissions); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	return writeAtomic(dest, []byte(body))
}

// ReadMarkdown loads the page-annotated body.
func (s *Store) ReadMarkdown(_ context.Context, fileID string) (string, error) {
	src, err := s.path(fileID, markdownName)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s of %s: %w", markdownName, fileID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", markdownName, err)
	}
	return string(data), nil
}

// HasMarkdown reports whether the file has been parsed.
func (s *Store) HasMarkdown(fileID string) bool {
	p, err := s.path(fileID, markdownName)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// SaveMeta merges the record into meta.json and replaces the file
// atomically. Keys this version does not know about are kept.
func (s *Store) SaveMeta(_ context.Context, meta domain.FileMeta) error {
	dest, err := s.path(meta.ID, metaName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), dirPermissions); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	merged := make(map[string]any)
	if existing, err := os.ReadFile(dest); err == nil {
		// A corrupt record is replaced rather than blocking the write.
		_ = json.Unmarshal(existing, &merged)
	}

	known, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	for k, v := range fields {
		merged[k] = v
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	return writeAtomic(dest, data)
}

// LoadMeta reads the metadata record.
func (s *Store) LoadMeta(_ context.Context, fileID string) (*domain.FileMeta, error) {
	src, err := s.path(fileID, metaName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("meta of %s: %w", fileID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}

	var meta domain.FileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode meta of %s: %w", fileID, err)
	}
	if meta.ID == "" {
		meta.ID = fileID
	}
	return &meta, nil
}

// ListFileIDs returns the work directory names, excluding the index
// directory and hidden entries.
func (s *Store) ListFileIDs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read data root: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || name == IndexDirName || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}

// ModTime returns the work directory's modification time as unix seconds.
func (s *Store) ModTime(fileID string) (float64, error) {
	dir, err := s.workDir(fileID)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", fileID, domain.ErrNotFound)
	}
	return float64(info.ModTime().UnixNano()) / 1e9, nil
}

// Size returns the stored PDF size in bytes.
func (s *Store) Size(fileID string) (int64, error) {
	p, err := s.path(fileID, originalName)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		return 0, fmt.Errorf("original of %s: %w", fileID, domain.ErrNotFound)
	}
	return info.Size(), nil
}

// Exists reports whether a work directory exists.
func (s *Store) Exists(fileID string) bool {
	dir, err := s.workDir(fileID)
	if err != nil {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}

// Delete removes the work directory.
func (s *Store) Delete(_ context.Context, fileID string) error {
	if !s.Exists(fileID) {
		return fmt.Errorf("file %s: %w", fileID, domain.ErrNotFound)
	}
	dir, _ := s.workDir(fileID)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", fileID, err)
	}
	return nil
}

// ListSourcePDFs returns the *.pdf files directly inside dir, sorted.
// The extension match is case-insensitive.
func (s *Store) ListSourcePDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// IndexDir returns the directory holding the persisted vector index.
func (s *Store) IndexDir() string {
	return filepath.Join(s.root, IndexDirName)
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ctxReader stops a copy once the context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
