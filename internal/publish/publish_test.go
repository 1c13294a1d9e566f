package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"canvas-sync/internal/event"
)

type fakeSQS struct {
	urlCalls   int
	sent       []string
	batchSizes []int
	batchIDs   [][]string
	sendErr    error
	batchErr   error
	failIn     int // chunk index (1-based) whose entries come back Failed
	chunks     int
}

func (f *fakeSQS) GetQueueUrl(_ context.Context, in *sqs.GetQueueUrlInput, _ ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error) {
	f.urlCalls++
	url := fmt.Sprintf("https://sqs.test/%s", aws.ToString(in.QueueName))
	return &sqs.GetQueueUrlOutput{QueueUrl: aws.String(url)}, nil
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, aws.ToString(in.MessageBody))
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) SendMessageBatch(_ context.Context, in *sqs.SendMessageBatchInput, _ ...func(*sqs.Options)) (*sqs.SendMessageBatchOutput, error) {
	f.chunks++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	if f.failIn == f.chunks {
		return &sqs.SendMessageBatchOutput{
			Failed: []sqstypes.BatchResultErrorEntry{{Id: aws.String("0")}},
		}, nil
	}
	f.batchSizes = append(f.batchSizes, len(in.Entries))
	ids := make([]string, 0, len(in.Entries))
	for _, e := range in.Entries {
		ids = append(ids, aws.ToString(e.Id))
	}
	f.batchIDs = append(f.batchIDs, ids)
	return &sqs.SendMessageBatchOutput{}, nil
}

type fakeS3 struct {
	puts map[string][]byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	b, _ := io.ReadAll(in.Body)
	f.puts[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func newTestPublisher(q *fakeSQS, s *fakeS3, bucket string, maxSize int) *Publisher {
	return New(q, NewQueueURLCache(q, nil), s, bucket, maxSize, zap.NewNop())
}

func TestPublishSingleMessage(t *testing.T) {
	q := &fakeSQS{}
	p := newTestPublisher(q, nil, "", 0)

	msg := event.SyncMessage{EventType: event.TypeSyncCompleted, CognitoSub: "sub-1"}
	if err := p.Publish(context.Background(), "canvas-sync-queue", msg); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(q.sent) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(q.sent))
	}
	if !strings.Contains(q.sent[0], `"eventType":"CANVAS_SYNC_COMPLETED"`) {
		t.Errorf("Unexpected body %s", q.sent[0])
	}
}

func TestPublishBatchPartitioning(t *testing.T) {
	// 23 records must go out as exactly 3 provider calls: 10, 10, 3.
	q := &fakeSQS{}
	p := newTestPublisher(q, nil, "", 0)

	msgs := make([]any, 23)
	for i := range msgs {
		msgs[i] = event.AssignmentEvent{EventType: event.TypeAssignmentCreated, CanvasAssignmentID: int64(i)}
	}

	if err := p.PublishBatch(context.Background(), "assignment-events-queue", msgs); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if q.chunks != 3 {
		t.Fatalf("Expected 3 provider calls, got %d", q.chunks)
	}
	want := []int{10, 10, 3}
	for i, n := range want {
		if q.batchSizes[i] != n {
			t.Errorf("Chunk %d: expected %d entries, got %d", i, n, q.batchSizes[i])
		}
	}
	// Entry ids are index-based and scoped to the call.
	if q.batchIDs[2][0] != "0" || q.batchIDs[2][2] != "2" {
		t.Errorf("Expected per-call index ids, got %v", q.batchIDs[2])
	}
}

func TestPublishBatchFailedChunkAborts(t *testing.T) {
	q := &fakeSQS{failIn: 2}
	p := newTestPublisher(q, nil, "", 0)

	msgs := make([]any, 23)
	for i := range msgs {
		msgs[i] = event.AssignmentEvent{CanvasAssignmentID: int64(i)}
	}

	err := p.PublishBatch(context.Background(), "assignment-events-queue", msgs)
	var perr *PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *PublishError, got %v", err)
	}
	if q.chunks != 2 {
		t.Errorf("Failed chunk must abort remaining chunks, got %d calls", q.chunks)
	}
}

func TestPublishBatchEmpty(t *testing.T) {
	q := &fakeSQS{}
	p := newTestPublisher(q, nil, "", 0)

	if err := p.PublishBatch(context.Background(), "assignment-events-queue", nil); err != nil {
		t.Fatalf("Empty batch must be a no-op, got %v", err)
	}
	if q.chunks != 0 || q.urlCalls != 0 {
		t.Error("Empty batch must not touch the provider")
	}
}

func TestPublishSendFailure(t *testing.T) {
	q := &fakeSQS{sendErr: errors.New("throttled")}
	p := newTestPublisher(q, nil, "", 0)

	err := p.Publish(context.Background(), "canvas-sync-queue", event.SyncMessage{})
	var perr *PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *PublishError, got %v", err)
	}
	if perr.Queue != "canvas-sync-queue" {
		t.Errorf("Expected queue name in error, got %q", perr.Queue)
	}
}

func TestPublishOversizeOffloadsToS3(t *testing.T) {
	q := &fakeSQS{}
	s := &fakeS3{}
	p := newTestPublisher(q, s, "sync-events", 512)

	msg := event.SyncMessage{
		EventType:  event.TypeSyncCompleted,
		CognitoSub: "sub-1",
		Courses: []event.CourseData{
			{CanvasCourseID: 1, CourseName: strings.Repeat("x", 2048)},
		},
	}
	if err := p.Publish(context.Background(), "canvas-sync-queue", msg); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(s.puts) != 1 {
		t.Fatalf("Expected 1 S3 object, got %d", len(s.puts))
	}
	if len(q.sent) != 1 {
		t.Fatalf("Expected a pointer message on the queue, got %d", len(q.sent))
	}

	var ptr event.OffloadedMessage
	if err := json.Unmarshal([]byte(q.sent[0]), &ptr); err != nil {
		t.Fatalf("Pointer message is not valid JSON: %v", err)
	}
	if ptr.EventType != event.TypeSyncCompleted {
		t.Errorf("Pointer must preserve eventType, got %q", ptr.EventType)
	}
	if ptr.PayloadRef.Bucket != "sync-events" || ptr.PayloadRef.ContentEncoding != "br" {
		t.Errorf("Unexpected payload ref %+v", ptr.PayloadRef)
	}

	// Offloaded object decompresses back to the original body.
	compressed := s.puts[ptr.PayloadRef.Key]
	raw, err := io.ReadAll(brotli.NewReader(strings.NewReader(string(compressed))))
	if err != nil {
		t.Fatalf("Offloaded object is not brotli: %v", err)
	}
	var round event.SyncMessage
	if err := json.Unmarshal(raw, &round); err != nil {
		t.Fatalf("Decompressed payload is not the message: %v", err)
	}
	if round.CognitoSub != "sub-1" || len(round.Courses) != 1 {
		t.Errorf("Round-tripped payload mismatch: %+v", round)
	}
}

func TestPublishOversizeWithoutBucketFails(t *testing.T) {
	q := &fakeSQS{}
	p := newTestPublisher(q, nil, "", 64)

	msg := event.SyncMessage{CognitoSub: strings.Repeat("y", 256)}
	err := p.Publish(context.Background(), "canvas-sync-queue", msg)
	var perr *PublishError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *PublishError, got %v", err)
	}
	if len(q.sent) != 0 {
		t.Error("Oversize body without a bucket must not be sent")
	}
}
