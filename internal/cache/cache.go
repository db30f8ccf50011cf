// Package cache keeps composed outputs on disk so unchanged entries can be
// served without re-resolving them.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"wgslcompose/internal/project"
)

// SchemaVersion - увеличивать при изменении формата Payload.
const SchemaVersion uint16 = 1

// Disk хранит результаты компоновки по ключу entry на диске.
// Thread-safe for concurrent access.
type Disk struct {
	mu  sync.RWMutex
	dir string
}

// Payload is one cached composition.
type Payload struct {
	Schema uint16

	Entry     string         // id входного шейдера
	EntryHash project.Digest // хеш текста entry
	Modules   []string       // id модулей в порядке вывода
	Hashes    []project.Digest
	Digest    project.Digest // агрегат entry + модули
	Output    string
	Created   time.Time
}

// Open initializes a cache under $XDG_CACHE_HOME/<app> (or ~/.cache/<app>).
func Open(app string) (*Disk, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate cache dir: %w", err)
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDir(filepath.Join(base, app))
}

// OpenDir initializes a cache rooted at dir.
func OpenDir(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the cache root.
func (c *Disk) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

// Key derives the cache key of an entry from its project-independent identity.
func Key(manifestPath, entryID, out string) project.Digest {
	return project.HashString(manifestPath + "\x00" + entryID + "\x00" + out)
}

func (c *Disk) pathFor(key project.Digest) string {
	// подкаталог "out" для удобства очистки
	return filepath.Join(c.dir, "out", key.String()+".mp")
}

// Put serializes and writes a payload atomically.
func (c *Disk) Put(key project.Digest, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		// после успешного Rename файла уже нет
		_ = os.Remove(tmp)
	}()

	payload.Schema = SchemaVersion
	if payload.Created.IsZero() {
		payload.Created = time.Now()
	}
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode cache payload: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, p)
}

// Get reads a payload. A missing file or a schema mismatch is a miss.
func (c *Disk) Get(key project.Digest) (*Payload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	var out Payload
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("decode cache payload: %w", err)
	}
	if out.Schema != SchemaVersion || len(out.Modules) != len(out.Hashes) {
		return nil, false, nil
	}
	return &out, true, nil
}

// DropAll invalidates the whole cache.
func (c *Disk) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// переименуем каталог и удалим целиком
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
