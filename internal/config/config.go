package config

import (
	"os"
	"strconv"
	"time"
)

// Logical queue names. Physical URLs are resolved at runtime (publish package)
// unless an explicit *_QUEUE_URL override is set.
const (
	CanvasSyncQueue       = "canvas-sync-queue"
	AssignmentEventsQueue = "assignment-events-queue"
	SyncTestReportQueue   = "canvas-sync-test-queue"
)

type PublishStrategy string

const (
	StrategyBatched   PublishStrategy = "batched"
	StrategyPerRecord PublishStrategy = "per-record"
)

type Config struct {
	// Collaborator services
	UserServiceURL   string
	CourseServiceURL string

	// Canvas
	CanvasAPIBaseURL string
	CanvasPageSize   int

	// AWS / LocalStack
	AWSRegion       string
	SQSEndpoint     string // non-empty means a local/emulated backend
	S3Endpoint      string
	SecretsEndpoint string

	// Service-to-service auth
	ServiceAuthToken     string // static override; also the secret-store fallback
	ServiceAuthTokenSet  bool   // explicitly configured, not the built-in default
	ServiceTokenSecretID string

	// Outbound
	Strategy       PublishStrategy
	QueueURLs      map[string]string // logical name -> explicit URL override
	EventsBucket   string            // oversize payload offload; empty disables
	MaxMessageSize int

	// Timeouts
	ServiceTimeout time.Duration
	CanvasTimeout  time.Duration
}

func Load() Config {
	return Config{
		UserServiceURL:   getenv("USER_SERVICE_URL", "http://localhost:8081"),
		CourseServiceURL: getenv("COURSE_SERVICE_URL", "http://localhost:8082"),

		CanvasAPIBaseURL: getenv("CANVAS_API_BASE_URL", "https://canvas.instructure.com/api/v1"),
		CanvasPageSize:   envInt("CANVAS_PAGE_SIZE", 100),

		AWSRegion:       getenv("AWS_REGION", "ap-northeast-2"),
		SQSEndpoint:     os.Getenv("SQS_ENDPOINT"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		SecretsEndpoint: os.Getenv("SECRETSMANAGER_ENDPOINT"),

		ServiceAuthToken:     getenv("SERVICE_AUTH_TOKEN", "local-dev-token"),
		ServiceAuthTokenSet:  os.Getenv("SERVICE_AUTH_TOKEN") != "",
		ServiceTokenSecretID: getenv("SERVICE_TOKEN_SECRET_ID", "canvas-sync/service-auth-token"),

		Strategy: PublishStrategy(getenv("PUBLISH_STRATEGY", string(StrategyBatched))),
		QueueURLs: map[string]string{
			CanvasSyncQueue:       os.Getenv("CANVAS_SYNC_QUEUE_URL"),
			AssignmentEventsQueue: os.Getenv("ASSIGNMENT_EVENTS_QUEUE_URL"),
			SyncTestReportQueue:   os.Getenv("SYNC_TEST_REPORT_QUEUE_URL"),
		},
		EventsBucket:   os.Getenv("SYNC_EVENTS_BUCKET"),
		MaxMessageSize: envInt("MAX_MESSAGE_SIZE", 250*1024),

		ServiceTimeout: envDuration("SERVICE_TIMEOUT", 5*time.Second),
		CanvasTimeout:  envDuration("CANVAS_TIMEOUT", 10*time.Second),
	}
}

// LocalBackend reports whether the deployment points at an emulated AWS
// backend (LocalStack). The secret store is skipped entirely in that case.
func (c Config) LocalBackend() bool {
	return c.SQSEndpoint != ""
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
