package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"uptask/internal/models"
	"uptask/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

func tokenKey(token string) string {
	return fmt.Sprintf("token:%s", token)
}

// * SaveToken сохраняет одноразовый код, ключ живет до ExpiresAt (атомарно через SETNX)
func (r *RedisRepo) SaveToken(ctx context.Context, t models.Token) error {
	const op = "storage.redis.SaveToken"

	ttl := time.Until(t.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%s: token already expired", op)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ok, err := r.client.SetNX(ctx, tokenKey(t.Token), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !ok {
		return storage.ErrTokenExists
	}

	return nil
}

// * Token возвращает код, истекшие коды Redis удаляет сам
func (r *RedisRepo) Token(ctx context.Context, token string) (models.Token, error) {
	const op = "storage.redis.Token"

	data, err := r.client.Get(ctx, tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Token{}, storage.ErrTokenNotFound
		}

		return models.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	var t models.Token
	if err := json.Unmarshal(data, &t); err != nil {
		return models.Token{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// * DeleteToken удаляет использованный код
func (r *RedisRepo) DeleteToken(ctx context.Context, token string) error {
	const op = "storage.redis.DeleteToken"

	if err := r.client.Del(ctx, tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}
