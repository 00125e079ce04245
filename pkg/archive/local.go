package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalConfig configures the Local filesystem variant.
type LocalConfig struct {
	BaseDir string
}

// Local implements Adapter over the host filesystem. Keys are UTF-8
// paths using '/' regardless of platform; Local maps '/' to the host
// separator when translating to a real path.
type Local struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocal constructs a Local adapter rooted at cfg.BaseDir, creating
// the directory if it does not already exist.
func NewLocal(cfg LocalConfig, logger *zap.Logger) (*Local, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("archive: local baseDir is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create base dir: %w", err)
	}
	return &Local{baseDir: cfg.BaseDir, logger: logger}, nil
}

func (l *Local) hostPath(key string) string {
	cleanKey := strings.TrimPrefix(key, "/")
	parts := strings.Split(cleanKey, "/")
	return filepath.Join(append([]string{l.baseDir}, parts...)...)
}

func (l *Local) Put(ctx context.Context, key string, body io.Reader, _ string, _ map[string]string) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	dest := l.hostPath(key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return PutResult{}, fmt.Errorf("%w: mkdir: %v", ErrUnavailable, err)
	}
	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return PutResult{}, fmt.Errorf("%w: create: %v", ErrUnavailable, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		os.Remove(tmp)
		return PutResult{}, fmt.Errorf("%w: write: %v", ErrUnavailable, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return PutResult{}, fmt.Errorf("%w: close: %v", ErrUnavailable, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return PutResult{}, fmt.Errorf("%w: rename: %v", ErrUnavailable, err)
	}
	// The filesystem has no native content-identity concept the way S3/GCS/Azure
	// do; synthesize an opaque one so callers can treat ETag uniformly across
	// every provider.
	return PutResult{Location: dest, ETag: uuid.NewString()}, nil
}

func (l *Local) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.hostPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}

func (l *Local) List(ctx context.Context, prefix string, sinceTime time.Time) (Iterator, error) {
	root := l.hostPath(prefix)
	var items []ObjectInfo
	walkErr := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.HasSuffix(p, ".tmp") {
			return nil
		}
		if !sinceTime.IsZero() && info.ModTime().Before(sinceTime) {
			return nil
		}
		rel, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		items = append(items, ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, walkErr)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return newSliceIterator(items), nil
}

func (l *Local) Delete(ctx context.Context, keys ...string) ([]DeleteOutcome, error) {
	outcomes := make([]DeleteOutcome, 0, len(keys))
	for _, key := range keys {
		err := os.Remove(l.hostPath(key))
		if err != nil && !os.IsNotExist(err) {
			l.logger.Warn("local archive delete failed", zap.String("key", key), zap.Error(err))
		}
		outcomes = append(outcomes, DeleteOutcome{Key: key, Err: err})
	}
	return outcomes, nil
}

// SetLifecycle is a no-op for the Local variant: there is no provider
// lifecycle engine to configure.
func (l *Local) SetLifecycle(ctx context.Context, rules []LifecycleRule) error {
	return nil
}

var _ Adapter = (*Local)(nil)
