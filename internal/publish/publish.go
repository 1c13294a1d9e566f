// Package publish emits sync events to the outbound SQS queues: destination
// resolution with warm caching, provider-mandated batch chunking, and S3
// claim-check offload for oversize bodies.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/andybalholm/brotli"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"canvas-sync/internal/event"
)

// SQS allows at most this many records per send-batch call.
const batchChunkSize = 10

// SQSAPI is the slice of the SQS client this package uses.
type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	SendMessageBatch(ctx context.Context, params *sqs.SendMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error)
}

// S3API is the slice of the S3 client used for payload offload.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PublishError wraps any provider failure on the outbound path. The whole
// computed result is lost with it; a platform retry recomputes everything.
type PublishError struct {
	Queue string
	Cause error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish: queue %s: %v", e.Queue, e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }

type Publisher struct {
	sqs  SQSAPI
	urls *QueueURLCache
	log  *zap.Logger

	// Oversize offload. Disabled when Bucket is empty.
	s3      S3API
	bucket  string
	maxSize int
}

func New(sqsAPI SQSAPI, urls *QueueURLCache, s3API S3API, bucket string, maxSize int, log *zap.Logger) *Publisher {
	if maxSize <= 0 {
		maxSize = 250 * 1024
	}
	return &Publisher{
		sqs:     sqsAPI,
		urls:    urls,
		log:     log,
		s3:      s3API,
		bucket:  bucket,
		maxSize: maxSize,
	}
}

// Publish marshals one message and sends it to the logical queue.
func (p *Publisher) Publish(ctx context.Context, logicalQueue string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return &PublishError{Queue: logicalQueue, Cause: err}
	}

	if len(body) > p.maxSize {
		body, err = p.offload(ctx, body)
		if err != nil {
			return &PublishError{Queue: logicalQueue, Cause: err}
		}
	}

	queueURL, err := p.urls.Resolve(ctx, logicalQueue)
	if err != nil {
		return &PublishError{Queue: logicalQueue, Cause: err}
	}

	if _, err := p.sqs.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	}); err != nil {
		return &PublishError{Queue: logicalQueue, Cause: err}
	}
	return nil
}

// PublishBatch sends many messages in provider-mandated chunks of ten,
// each record tagged with an index-based id scoped to its call. A failed
// chunk aborts the remaining chunks; chunks are never retried partially.
func (p *Publisher) PublishBatch(ctx context.Context, logicalQueue string, msgs []any) error {
	if len(msgs) == 0 {
		return nil
	}

	queueURL, err := p.urls.Resolve(ctx, logicalQueue)
	if err != nil {
		return &PublishError{Queue: logicalQueue, Cause: err}
	}

	for start := 0; start < len(msgs); start += batchChunkSize {
		end := start + batchChunkSize
		if end > len(msgs) {
			end = len(msgs)
		}

		entries := make([]sqstypes.SendMessageBatchRequestEntry, 0, end-start)
		for i, msg := range msgs[start:end] {
			body, err := json.Marshal(msg)
			if err != nil {
				return &PublishError{Queue: logicalQueue, Cause: err}
			}
			entries = append(entries, sqstypes.SendMessageBatchRequestEntry{
				Id:          aws.String(strconv.Itoa(i)),
				MessageBody: aws.String(string(body)),
			})
		}

		out, err := p.sqs.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: aws.String(queueURL),
			Entries:  entries,
		})
		if err != nil {
			return &PublishError{Queue: logicalQueue, Cause: err}
		}
		if len(out.Failed) > 0 {
			return &PublishError{
				Queue: logicalQueue,
				Cause: fmt.Errorf("%d of %d records rejected in chunk", len(out.Failed), len(entries)),
			}
		}
	}
	return nil
}

// offload parks an oversize body in S3, brotli-compressed, and returns the
// pointer message that goes on the queue instead.
func (p *Publisher) offload(ctx context.Context, body []byte) ([]byte, error) {
	if p.bucket == "" || p.s3 == nil {
		return nil, fmt.Errorf("message of %d bytes exceeds limit and no events bucket is configured", len(body))
	}

	var head struct {
		EventType  string `json:"eventType"`
		CognitoSub string `json:"cognitoSub"`
	}
	// Best effort; an unparseable head still offloads.
	json.Unmarshal(body, &head)

	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(body); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}
	if err := bw.Close(); err != nil {
		return nil, fmt.Errorf("compress payload: %w", err)
	}

	key := fmt.Sprintf("canvas-sync/%s.json.br", uuid.NewString())
	if _, err := p.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(p.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("br"),
	}); err != nil {
		return nil, fmt.Errorf("offload payload: %w", err)
	}

	p.log.Info("oversize payload offloaded",
		zap.String("bucket", p.bucket),
		zap.String("key", key),
		zap.Int("rawBytes", len(body)),
		zap.Int("compressedBytes", buf.Len()))

	return json.Marshal(event.OffloadedMessage{
		EventType:  head.EventType,
		CognitoSub: head.CognitoSub,
		PayloadRef: event.PayloadRef{Bucket: p.bucket, Key: key, ContentEncoding: "br"},
	})
}
