package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// redisDirectory resolves chat user ids through per-source Redis hashes
// (`directory:slack`, `directory:chat`) maintained by the host chat
// integrations.
type redisDirectory struct {
	client *redis.Client
}

// NewRedisDirectory constructs the default directory lookup.
func NewRedisDirectory(client *redis.Client) DirectoryLookup {
	return &redisDirectory{client: client}
}

func (d *redisDirectory) ResolveEmail(ctx context.Context, source domain.Source, userID string) (string, error) {
	if d.client == nil {
		return "", fmt.Errorf("directory store not configured")
	}
	email, err := d.client.HGet(ctx, "directory:"+string(source), userID).Result()
	if err != nil {
		if err == redis.Nil {
			return "", fmt.Errorf("no directory entry for %s user %q", source, userID)
		}
		return "", fmt.Errorf("directory lookup: %w", err)
	}
	return strings.ToLower(strings.TrimSpace(email)), nil
}
