// Package secrets resolves the service-to-service API key once per warm
// execution context and caches it for the lifetime of the host.
package secrets

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// ManagerAPI is the slice of the Secrets Manager client this package uses.
type ManagerAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

type Cache struct {
	api      ManagerAPI
	secretID string

	// Override value. Returned directly when explicitly configured or on a
	// local backend, and used as the fallback when the secret store fails.
	override    string
	overrideSet bool
	local       bool

	log *zap.Logger

	mu    sync.Mutex
	value string
	done  bool
}

// NewCache builds the warm-lifetime secret cache. A cold start builds a new
// one; nothing ever invalidates it mid-lifetime. overrideSet marks an
// override the operator configured explicitly, as opposed to the built-in
// default that only backs the failure fallback.
func NewCache(api ManagerAPI, secretID, override string, overrideSet, local bool, log *zap.Logger) *Cache {
	return &Cache{
		api:         api,
		secretID:    secretID,
		override:    override,
		overrideSet: overrideSet,
		local:       local,
		log:         log,
	}
}

// ServiceToken returns the service API key. Resolution order: an explicitly
// configured override or a local/emulated deployment uses the static value
// without touching the secret store; otherwise the store is consulted once
// and memoized. A store failure falls back to the override instead of
// failing the invocation, but loudly.
func (c *Cache) ServiceToken(ctx context.Context) string {
	if c.overrideSet || c.local || c.api == nil {
		return c.override
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return c.value
	}

	out, err := c.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(c.secretID),
	})
	if err != nil || out.SecretString == nil {
		c.log.Warn("secret store lookup failed, falling back to env override",
			zap.String("secretId", c.secretID),
			zap.String("awsErrorCode", apiErrorCode(err)),
			zap.Error(err))
		c.value = c.override
		c.done = true
		return c.value
	}

	c.value = *out.SecretString
	c.done = true
	return c.value
}

// apiErrorCode pulls the service error code out of an AWS SDK error chain,
// such as ResourceNotFoundException or AccessDeniedException.
func apiErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}
