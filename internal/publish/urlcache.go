package publish

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// QueueURLCache resolves logical queue names to physical URLs. An explicit
// override from config wins every time and skips the lookup; otherwise the
// provider is asked exactly once per logical name per warm lifetime.
// A single host runs one invocation at a time, so a plain map suffices.
type QueueURLCache struct {
	api       SQSAPI
	overrides map[string]string
	cache     map[string]string
}

func NewQueueURLCache(api SQSAPI, overrides map[string]string) *QueueURLCache {
	return &QueueURLCache{
		api:       api,
		overrides: overrides,
		cache:     make(map[string]string),
	}
}

func (c *QueueURLCache) Resolve(ctx context.Context, logicalName string) (string, error) {
	if u := c.overrides[logicalName]; u != "" {
		return u, nil
	}
	if u, ok := c.cache[logicalName]; ok {
		return u, nil
	}

	out, err := c.api.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(logicalName),
	})
	if err != nil {
		return "", fmt.Errorf("publish: resolve queue %s: %w", logicalName, err)
	}

	c.cache[logicalName] = aws.ToString(out.QueueUrl)
	return c.cache[logicalName], nil
}
