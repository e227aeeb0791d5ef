package storage

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
)

// Marshal encodes a value for storage.
func Marshal(v interface{}) ([]byte, error) {
	return sonic.Marshal(v)
}

// Unmarshal decodes a stored value.
func Unmarshal(data []byte, v interface{}) error {
	return sonic.Unmarshal(data, v)
}

// GetJSON loads and decodes the value at key.
func GetJSON(ctx context.Context, kv KV, key string, v interface{}) error {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: decode %q: %w", key, err)
	}
	return nil
}

// SetJSON encodes and stores the value at key.
func SetJSON(ctx context.Context, kv KV, key string, v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %q: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}
