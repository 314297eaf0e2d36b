package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EnablementStore persists which plugins are enabled. Plugins absent from the
// store are enabled.
type EnablementStore interface {
	Load(ctx context.Context) (map[string]bool, error)
	Set(ctx context.Context, name string, enabled bool) error
}

// FileEnablementStore keeps enablement in a JSON file.
type FileEnablementStore struct {
	path string
	mu   sync.Mutex
}

// NewFileEnablementStore creates a store backed by the file at path.
func NewFileEnablementStore(path string) *FileEnablementStore {
	return &FileEnablementStore{path: path}
}

type settingsData struct {
	LastUpdated time.Time       `json:"last_updated"`
	Plugins     map[string]bool `json:"plugins"`
}

// Load implements EnablementStore.
func (s *FileEnablementStore) Load(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileEnablementStore) load() (map[string]bool, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings settingsData
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if settings.Plugins == nil {
		settings.Plugins = map[string]bool{}
	}
	return settings.Plugins, nil
}

// Set implements EnablementStore.
func (s *FileEnablementStore) Set(ctx context.Context, name string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plugins, err := s.load()
	if err != nil {
		return err
	}
	plugins[name] = enabled

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(settingsData{LastUpdated: time.Now(), Plugins: plugins}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tempFile, s.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to save settings file: %w", err)
	}
	return nil
}

// RedisEnablementStore keeps enablement in a redis hash, one field per
// plugin, so several hosts can share it.
type RedisEnablementStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisEnablementStore creates a store using the hash at key.
func NewRedisEnablementStore(client redis.UniversalClient, key string) *RedisEnablementStore {
	if key == "" {
		key = "pluginhost:enablement"
	}
	return &RedisEnablementStore{client: client, key: key}
}

// Load implements EnablementStore.
func (s *RedisEnablementStore) Load(ctx context.Context) (map[string]bool, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load enablement from redis: %w", err)
	}
	out := make(map[string]bool, len(fields))
	for name, v := range fields {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			continue
		}
		out[name] = enabled
	}
	return out, nil
}

// Set implements EnablementStore.
func (s *RedisEnablementStore) Set(ctx context.Context, name string, enabled bool) error {
	if err := s.client.HSet(ctx, s.key, name, strconv.FormatBool(enabled)).Err(); err != nil {
		return fmt.Errorf("failed to save enablement to redis: %w", err)
	}
	return nil
}

// Close closes the redis client.
func (s *RedisEnablementStore) Close() error {
	return s.client.Close()
}
