package redis_client

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultConnectionAddress = "localhost:6379"

type Options struct {
	Address  string
	Password string
	Database int
}

// Connect opens a client and checks the server answers before handing it back.
func Connect(ctx context.Context, options Options) (*redis.Client, error) {
	address := options.Address
	if address == "" {
		address = defaultConnectionAddress
	}

	redisOptions := &redis.Options{
		Addr: address,
		DB:   options.Database,
	}
	if options.Password != "" {
		redisOptions.Password = options.Password
	}

	client := redis.NewClient(redisOptions)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", address)
	}

	return client, nil
}
