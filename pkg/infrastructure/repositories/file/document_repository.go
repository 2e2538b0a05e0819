// Package file stores the ledger document as one JSON file, replaced atomically
// on every save with timestamped backups of the previous version.
package file

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
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/labledger/pkg/domain/entities"
	"github.com/vsinha/labledger/pkg/domain/repositories"
)

const backupTimeLayout = "20060102T150405.000000000"

// Options configures a DocumentRepository
type Options struct {
	BackupDir  string
	BackupKeep int
	Logger     *zap.Logger
	Clock      func() time.Time
}

// DocumentRepository persists the document to a JSON file
type DocumentRepository struct {
	path   string
	opts   Options
	logger *zap.Logger
	mu     sync.Mutex
}

// NewDocumentRepository creates a repository for path. Backups are disabled when BackupKeep is zero.
func NewDocumentRepository(path string, opts Options) (*DocumentRepository, error) {
	if path == "" {
		return nil, fmt.Errorf("data file path cannot be empty")
	}
	if opts.BackupKeep < 0 {
		return nil, fmt.Errorf("backup keep cannot be negative, got %d", opts.BackupKeep)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.BackupDir == "" {
		opts.BackupDir = filepath.Join(filepath.Dir(path), "backups")
	}
	return &DocumentRepository{path: path, opts: opts, logger: opts.Logger}, nil
}

// Verify interface compliance
var _ repositories.DocumentRepository = (*DocumentRepository)(nil)

func (r *DocumentRepository) Load(ctx context.Context) (*entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *DocumentRepository) read() (*entities.Document, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return entities.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}
	var doc entities.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", r.path, err)
	}
	doc.Normalize()
	return &doc, nil
}

// Save writes doc to a temp file next to the target, fsyncs it and renames it
// over the target. The previous file is kept as a backup first.
func (r *DocumentRepository) Save(ctx context.Context, doc *entities.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read()
	if err != nil {
		return err
	}
	if current.Revision != doc.Revision {
		return fmt.Errorf("save at revision %d, stored %d: %w", doc.Revision, current.Revision, entities.ErrConcurrentModification)
	}

	doc.Revision++
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		doc.Revision--
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := r.backup(); err != nil {
		r.logger.Warn("failed to back up document", zap.String("path", r.path), zap.Error(err))
	}
	if err := writeAtomic(r.path, raw); err != nil {
		doc.Revision--
		return err
	}
	return nil
}

func writeAtomic(path string, raw []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(raw); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func (r *DocumentRepository) backupPrefix() string {
	return strings.TrimSuffix(filepath.Base(r.path), filepath.Ext(r.path)) + "-"
}

func (r *DocumentRepository) backup() error {
	if r.opts.BackupKeep == 0 {
		return nil
	}
	src, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(r.opts.BackupDir, 0o755); err != nil {
		return err
	}
	name := r.backupPrefix() + r.opts.Clock().UTC().Format(backupTimeLayout) + ".json"
	dst, err := os.Create(filepath.Join(r.opts.BackupDir, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return r.prune()
}

// Backups lists backup files newest first
func (r *DocumentRepository) Backups() ([]string, error) {
	entries, err := os.ReadDir(r.opts.BackupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	prefix := r.backupPrefix()
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, filepath.Join(r.opts.BackupDir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (r *DocumentRepository) prune() error {
	names, err := r.Backups()
	if err != nil {
		return err
	}
	for i := r.opts.BackupKeep; i < len(names); i++ {
		if err := os.Remove(names[i]); err != nil {
			return err
		}
	}
	return nil
}
