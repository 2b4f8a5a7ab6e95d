package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
)

// FilePersister keeps the state in a JSON file on the client machine.
type FilePersister struct {
	Path string
}

// NewFilePersister returns a persister writing to path.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{Path: path}
}

// Load returns an empty state when the file does not exist yet.
func (p *FilePersister) Load(ctx context.Context) (State, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewState(), nil
		}
		return State{}, fmt.Errorf("read %s: %w", p.Path, err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("decode %s: %w", p.Path, err)
	}
	return s.normalize(), nil
}

// Save writes to a temporary file and renames it over the target.
func (p *FilePersister) Save(ctx context.Context, s State) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return os.Rename(tmp, p.Path)
}

// RedisPersister keeps one client's state under a single Redis key.
type RedisPersister struct {
	client redis.Cmdable
	key    string
}

// NewRedisPersister stores the state for userID.
func NewRedisPersister(client redis.Cmdable, userID string) *RedisPersister {
	return &RedisPersister{client: client, key: "notifications:" + userID}
}

func (p *RedisPersister) Load(ctx context.Context) (State, error) {
	val, err := p.client.Get(ctx, p.key).Result()
	if err == redis.Nil {
		return NewState(), nil
	}
	if err != nil {
		return State{}, err
	}
	var s State
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return State{}, fmt.Errorf("decode %s: %w", p.key, err)
	}
	return s.normalize(), nil
}

// Save overwrites the key in one SET so both mappings change together.
func (p *RedisPersister) Save(ctx context.Context, s State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.key, data, 0).Err()
}
