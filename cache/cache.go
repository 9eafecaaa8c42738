package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bluele/gcache"
	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"
)

//*******************************************
// cache interface
//*******************************************

type ICache[K comparable, V any] interface {
	// Returns the cached value or computes and stores it. force skips lookup
	// and replaces the stored value.
	GetOrCompute(key K, compute func() (V, error), force bool) (V, error)
}

type ICodec[V any] interface {
	Encode(value V) ([]byte, error)
	Decode(data []byte) (V, error)
	// file extension including the dot
	Extension() string
}

//*******************************************
// file cache
//*******************************************

var _ ICache[CityKey, int] = &FileCache[CityKey, int]{}

// FileCache persists values to files and keeps recently used values in an
// in-memory LRU. Lookups are safe for concurrent use, concurrent computations
// of the same key are collapsed into one.
type FileCache[K IKey, V any] struct {
	root    string
	codec   ICodec[V]
	memory  gcache.Cache
	loading singleflight.Group
	logger  *slog.Logger
}

type IKey interface {
	comparable
	// relative path of the cache file without extension
	Path() string
}

// Creates a file cache below root keeping up to size values in memory.
func NewFileCache[K IKey, V any](root string, codec ICodec[V], size int, logger *slog.Logger) *FileCache[K, V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCache[K, V]{
		root:   root,
		codec:  codec,
		memory: gcache.New(max(size, 1)).LRU().Build(),
		logger: logger,
	}
}

func (self *FileCache[K, V]) File(key K) string {
	return filepath.Join(self.root, key.Path()+self.codec.Extension())
}

func (self *FileCache[K, V]) GetOrCompute(key K, compute func() (V, error), force bool) (V, error) {
	if !force {
		if value, ok := self.Get(key); ok {
			return value, nil
		}
	}

	file := self.File(key)
	value, err, shared := self.loading.Do(file, func() (any, error) {
		// a computation that finished while waiting already stored the value
		if !force {
			if value, ok := self.Get(key); ok {
				return value, nil
			}
		}
		start := time.Now()
		value, err := compute()
		if err != nil {
			return nil, err
		}
		if err := self.Set(key, value); err != nil {
			self.logger.Warn("failed to store cache entry", "file", file, "error", err)
		}
		self.logger.Info("computed cache entry", "file", file, "elapsed", time.Since(start))
		return value, nil
	})
	if err != nil {
		var v V
		return v, err
	}
	if shared {
		self.logger.Debug("joined running computation", "file", file)
	}
	return value.(V), nil
}

// Returns the value from memory or disk.
func (self *FileCache[K, V]) Get(key K) (V, bool) {
	var v V
	if cached, err := self.memory.Get(key); err == nil {
		return cached.(V), true
	}

	file := self.File(key)
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return v, false
	}
	if err != nil {
		self.logger.Warn("failed to read cache entry", "file", file, "error", err)
		return v, false
	}
	value, err := self.codec.Decode(data)
	if err != nil {
		self.logger.Warn("invalid cache entry, recomputing", "file", file, "error", err)
		return v, false
	}
	self.memory.Set(key, value)
	self.logger.Info("loaded cache entry", "file", file)
	return value, true
}

func (self *FileCache[K, V]) Set(key K, value V) error {
	self.memory.Set(key, value)
	data, err := self.codec.Encode(value)
	if err != nil {
		return err
	}
	return WriteFile(self.File(key), data)
}

// Removes the value from memory and disk.
func (self *FileCache[K, V]) Remove(key K) error {
	self.memory.Remove(key)
	err := os.Remove(self.File(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
