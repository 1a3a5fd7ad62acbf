// Package filestore is a storage.Area persisted as one file per key in a
// directory. Changes made by other processes sharing the directory are
// picked up with fsnotify and delivered as change events, so each process
// behaves like another tab of the same origin.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/storage"
)

var validKey = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var _ storage.Area = (*Store)(nil)

// Store is a directory backed storage.Area.
type Store struct {
	dir     string
	watcher *fsnotify.Watcher

	mu          sync.Mutex
	cache       map[string]string // last observed value per key
	subscribers map[int]func(storage.Event)
	seq         int
	pending     []storage.Event // events waiting for delivery, in observation order
	delivering  bool            // a goroutine is draining pending

	done chan struct{}
	wg   sync.WaitGroup
}

// New opens (creating if needed) the directory and starts watching it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch storage directory: %w", err)
	}

	s := &Store{
		dir:         dir,
		watcher:     watcher,
		cache:       make(map[string]string),
		subscribers: make(map[int]func(storage.Event)),
		done:        make(chan struct{}),
	}
	if err := s.prime(); err != nil {
		watcher.Close()
		return nil, err
	}

	s.wg.Add(1)
	go s.watch()

	log.Debug().Str("dir", dir).Msg("file storage initialized")
	return s, nil
}

func (s *Store) Get(key string) (string, bool, error) {
	if err := checkKey(key); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set writes the value atomically (temp file then rename).
func (s *Store) Set(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(s.dir, "."+key+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	if _, err := tempFile.WriteString(value); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Chmod(tempPath, 0600); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to chmod %s: %w", key, err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, s.path(key)); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	s.observe(key, &value)
	return nil
}

func (s *Store) Remove(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}

	s.observe(key, nil)
	return nil
}

func (s *Store) Subscribe(handler func(storage.Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	id := s.seq
	s.subscribers[id] = handler

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Close stops the watcher. Subsequent events from other processes are not delivered.
func (s *Store) Close() error {
	select {
	case <-s.done:
		return storage.ErrClosed
	default:
	}
	close(s.done)
	err := s.watcher.Close()
	s.wg.Wait()
	return err
}

func (s *Store) watch() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleFSEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("dir", s.dir).Msg("storage watcher error")
		}
	}
}

func (s *Store) handleFSEvent(event fsnotify.Event) {
	key := filepath.Base(event.Name)
	if strings.HasPrefix(key, ".") || !validKey.MatchString(key) {
		return
	}

	value, ok, err := s.Get(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to read changed key")
		return
	}
	if !ok {
		s.observe(key, nil)
		return
	}
	s.observe(key, &value)
}

// observe records the latest value of key and queues a change event when it
// changed. Events are delivered one at a time in observation order by
// whichever goroutine finds the queue idle, with no lock held, so subscribers
// may write to the store from inside a handler. Such nested writes are
// delivered after the current event.
func (s *Store) observe(key string, value *string) {
	s.mu.Lock()
	old, existed := s.cache[key]
	switch {
	case value == nil && !existed:
		s.mu.Unlock()
		return
	case value != nil && existed && old == *value:
		s.mu.Unlock()
		return
	}

	if value == nil {
		delete(s.cache, key)
	} else {
		s.cache[key] = *value
	}
	event := storage.Event{Key: key, NewValue: value}
	if existed {
		event.OldValue = &old
	}
	s.pending = append(s.pending, event)
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	s.mu.Unlock()

	s.drain()
}

func (s *Store) drain() {
	s.mu.Lock()
	defer func() {
		s.delivering = false
		s.mu.Unlock()
	}()

	for len(s.pending) > 0 {
		event := s.pending[0]
		s.pending = s.pending[1:]
		handlers := s.handlersLocked()
		s.mu.Unlock()

		for _, h := range handlers {
			h(event)
		}
		s.mu.Lock()
	}
}

func (s *Store) handlersLocked() []func(storage.Event) {
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	handlers := make([]func(storage.Event), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.subscribers[id])
	}
	return handlers
}

// prime loads existing keys so the first external change reports a correct OldValue.
func (s *Store) prime() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("failed to list storage directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !validKey.MatchString(name) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		s.cache[name] = string(data)
	}
	return nil
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return errors.New("invalid storage key: " + key)
	}
	return nil
}
