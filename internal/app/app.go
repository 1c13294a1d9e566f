// Package app wires the warm-lifetime pieces together: one App is built per
// execution context and reused across invocations; a cold start rebuilds it
// and clears every cache with it.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"canvas-sync/internal/canvas"
	"canvas-sync/internal/config"
	"canvas-sync/internal/courseservice"
	"canvas-sync/internal/publish"
	"canvas-sync/internal/secrets"
	"canvas-sync/internal/syncer"
	"canvas-sync/internal/trigger"
	"canvas-sync/internal/userservice"
)

// Response is the structured return value reported to synchronous callers;
// asynchronous callers ignore it.
type Response struct {
	StatusCode int            `json:"statusCode"`
	Body       syncer.Summary `json:"body"`
}

type App struct {
	cfg config.Config
	log *zap.Logger

	orchestrator *syncer.Orchestrator
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("app: load aws config: %w", err)
	}

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.SQSEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SQSEndpoint)
		}
	})
	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	smClient := secretsmanager.NewFromConfig(awsCfg, func(o *secretsmanager.Options) {
		if cfg.SecretsEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.SecretsEndpoint)
		}
	})

	secretCache := secrets.NewCache(smClient, cfg.ServiceTokenSecretID, cfg.ServiceAuthToken, cfg.ServiceAuthTokenSet, cfg.LocalBackend(), log)
	urls := publish.NewQueueURLCache(sqsClient, cfg.QueueURLs)
	publisher := publish.New(sqsClient, urls, s3Client, cfg.EventsBucket, cfg.MaxMessageSize, log)

	orchestrator := &syncer.Orchestrator{
		Canvas:      canvas.New(cfg.CanvasAPIBaseURL, cfg.CanvasPageSize),
		Credentials: userservice.New(cfg.UserServiceURL, cfg.ServiceTimeout, secretCache.ServiceToken),
		Enrollments: courseservice.New(cfg.CourseServiceURL, cfg.ServiceTimeout),
		Sink:        publisher,
		Strategy:    cfg.Strategy,
		Log:         log,
	}

	return &App{cfg: cfg, log: log, orchestrator: orchestrator}, nil
}

// Handle is the Lambda handler. Errors propagate unhandled: the hosting
// platform and its dead-letter queue are the sole retry authority.
func (a *App) Handle(ctx context.Context, raw json.RawMessage) (Response, error) {
	trg, err := trigger.Normalize(raw)
	if err != nil {
		a.log.Error("trigger rejected", zap.Error(err))
		return Response{}, err
	}

	summary, err := a.orchestrator.Run(ctx, trg)
	if err != nil {
		a.log.Error("sync failed",
			zap.String("cognitoSub", trg.CognitoSub),
			zap.String("syncMode", string(trg.Mode)),
			zap.Error(err))
		return Response{}, err
	}

	return Response{StatusCode: 200, Body: summary}, nil
}
