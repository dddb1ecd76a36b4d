package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis abre o cliente Redis usado pelo cache de cadeia de
// agentes. Pool pequeno: o acesso dominante é uma leitura por cliente
// por rodada.
func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		PoolSize:     8,
		MinIdleConns: 2,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}
