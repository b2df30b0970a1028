// AngelaMos | 2026
// onetime.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tapinfi/cardhub/internal/core"
)

const (
	PurposeConfirmEmail  = "confirm"
	PurposePasswordReset = "reset"
)

// OneTimeTokens stores single-use email link tokens in Redis. Only the
// SHA-256 of a token is kept, mapped to the account id.
type OneTimeTokens struct {
	rdb *redis.Client
}

func NewOneTimeTokens(rdb *redis.Client) *OneTimeTokens {
	return &OneTimeTokens{rdb: rdb}
}

func oneTimeKey(purpose, token string) string {
	return "auth:" + purpose + ":" + core.HashToken(token)
}

func (t *OneTimeTokens) Issue(
	ctx context.Context,
	purpose, userID string,
	ttl time.Duration,
) (string, error) {
	token, err := core.GenerateOneTimeToken()
	if err != nil {
		return "", err
	}

	if err := t.rdb.Set(ctx, oneTimeKey(purpose, token), userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("store %s token: %w", purpose, err)
	}

	return token, nil
}

// Consume returns the account id and deletes the token atomically, so a
// link works exactly once.
func (t *OneTimeTokens) Consume(
	ctx context.Context,
	purpose, token string,
) (string, error) {
	userID, err := t.rdb.GetDel(ctx, oneTimeKey(purpose, token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("consume %s token: %w", purpose, core.ErrTokenInvalid)
	}
	if err != nil {
		return "", fmt.Errorf("consume %s token: %w", purpose, err)
	}

	return userID, nil
}
