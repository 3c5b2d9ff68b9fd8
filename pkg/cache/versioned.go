package cache

import (
	"context"
	"errors"
	"fmt"
)

const versionKey = "cache_version"

// EnsureVersion clears every entry under namespace when the stored version
// differs from version, then records version. Bumping the configured version
// is how a deploy invalidates payloads whose shape changed.
func EnsureVersion(ctx context.Context, c Service, namespace, version string) (bool, error) {
	key := Key(namespace, versionKey)

	var current string
	err := c.Get(ctx, key, &current)
	if err == nil && current == version {
		return false, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return false, fmt.Errorf("read cache version: %w", err)
	}

	if err := c.DeletePrefix(ctx, namespace+":"); err != nil {
		return false, fmt.Errorf("clear cache: %w", err)
	}
	if err := c.Set(ctx, key, version, 0); err != nil {
		return false, fmt.Errorf("write cache version: %w", err)
	}
	return true, nil
}
