package cache

import (
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/hcicore/linux/hci/controller"
)

// Cache keeps the bring-up results of controllers in a JSON file, keyed by
// device address, so tools can report a controller without opening it.
type Cache struct {
	filename string
	lock     sync.RWMutex
}

func New(filename string) *Cache {
	return &Cache{filename: filename}
}

// Store saves info under its address. An existing entry is only
// overwritten when replace is set.
func (c *Cache) Store(info controller.Info, replace bool) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	cache, err := c.loadExisting()
	if err != nil {
		return err
	}

	_, ok := cache[info.Addr]
	if ok && !replace {
		return errors.Errorf("cache already contains controller %s", info.Addr)
	}

	cache[info.Addr] = info
	return c.storeCache(cache)
}

func (c *Cache) Load(addr string) (controller.Info, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	cache, err := c.loadExisting()
	if err != nil {
		return controller.Info{}, err
	}

	info, ok := cache[addr]
	if !ok {
		return controller.Info{}, errors.Errorf("controller %s not found in cache", addr)
	}
	return info, nil
}

// All returns every cached controller.
func (c *Cache) All() (map[string]controller.Info, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.loadExisting()
}

func (c *Cache) Clear() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	err := os.Remove(c.filename)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (c *Cache) loadExisting() (map[string]controller.Info, error) {
	in, err := os.ReadFile(c.filename)
	if os.IsNotExist(err) {
		return map[string]controller.Info{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "can't read cache")
	}

	var cache map[string]controller.Info
	if err := jsoniter.Unmarshal(in, &cache); err != nil {
		return nil, errors.Wrap(err, "can't decode cache")
	}
	if cache == nil {
		cache = map[string]controller.Info{}
	}
	return cache, nil
}

func (c *Cache) storeCache(cache map[string]controller.Info) error {
	out, err := jsoniter.Marshal(cache)
	if err != nil {
		return err
	}
	return os.WriteFile(c.filename, out, 0644)
}
