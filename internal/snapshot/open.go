package snapshot

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/example/kiosk/internal/crypto"
	"github.com/example/kiosk/internal/records"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	FilePath    string
	FileKey     string // hex key; empty leaves the file unencrypted
	SQLitePath  string
	DatabaseURL string
	RedisAddr   string
	RedisKey    string
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser = closerFunc(func() error { return nil })

// Open builds the backend named by opts.Backend. The returned closer
// releases its connections and is never nil on success.
func Open(ctx context.Context, opts Options) (records.Snapshotter, io.Closer, error) {
	switch opts.Backend {
	case "", BackendFile:
		var fileOpts []FileOption
		if opts.FileKey != "" {
			sealer, err := crypto.NewSealerFromHex(opts.FileKey)
			if err != nil {
				return nil, nil, fmt.Errorf("invalid snapshot file key: %w", err)
			}
			fileOpts = append(fileOpts, WithSealer(sealer))
		}
		b, err := NewFileBackend(opts.FilePath, fileOpts...)
		if err != nil {
			return nil, nil, err
		}
		return b, nopCloser, nil

	case BackendSQLite:
		b, err := OpenSQLite(ctx, opts.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil

	case BackendPostgres:
		b, pool, err := OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return b, closerFunc(func() error { pool.Close(); return nil }), nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", opts.RedisAddr, err)
		}
		return NewRedisBackend(client, opts.RedisKey), client, nil

	default:
		return nil, nil, fmt.Errorf("unknown snapshot backend %q", opts.Backend)
	}
}
