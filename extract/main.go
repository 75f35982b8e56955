package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/joho/godotenv"

	"github.com/swingdesk/radar-service/internal/access"
	"github.com/swingdesk/radar-service/internal/activity"
	"github.com/swingdesk/radar-service/internal/anthropic"
	"github.com/swingdesk/radar-service/internal/awsutil"
	"github.com/swingdesk/radar-service/internal/config"
	"github.com/swingdesk/radar-service/internal/db"
	"github.com/swingdesk/radar-service/internal/gemini"
	"github.com/swingdesk/radar-service/internal/imageprep"
	"github.com/swingdesk/radar-service/internal/llm"
	"github.com/swingdesk/radar-service/internal/openai"
	"github.com/swingdesk/radar-service/internal/pipeline"
	"github.com/swingdesk/radar-service/internal/prompts"
	"github.com/swingdesk/radar-service/internal/schema"
	"github.com/swingdesk/radar-service/internal/usage"
)

var apiKeyFields = map[string]string{
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
	llm.ProviderGemini:    "GEMINI_API_KEY",
}

func main() {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("WARNING: load .env: %v", err)
	}

	ctx := context.Background()
	cfg := config.Load()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatalf("load AWS config: %v", err)
	}

	secrets := awsutil.NewSecretsProvider(secretsmanager.NewFromConfig(awsCfg))
	s3Client := awsutil.NewS3Client(s3.NewFromConfig(awsCfg))

	database := db.New(func(ctx context.Context) (map[string]string, error) {
		if creds, ok := config.DBCredentials(); ok {
			return creds, nil
		}
		creds, err := secrets.GetSecretJSON(ctx, cfg.DBSecretARN)
		if err != nil {
			return nil, fmt.Errorf("get db secret: %w", err)
		}
		return creds, nil
	})

	client, err := newLLMClient(ctx, cfg, secrets)
	if err != nil {
		log.Fatalf("create %s client: %v", cfg.LLMProvider, err)
	}

	var audit activity.Sink = activity.NewPgSink(database)
	if cfg.AuditQueueURL != "" {
		audit = activity.NewSQSSink(awsutil.NewSQSClient(sqs.NewFromConfig(awsCfg)), cfg.AuditQueueURL)
	}

	recorder := usage.NewPgRecorder(database)
	validator := schema.NewValidator()
	files := pipeline.NewPgFileStore(database)

	svc := pipeline.NewService(pipeline.Deps{
		Files:         files,
		S3:            s3Client,
		Bucket:        cfg.Bucket,
		MaxImageBytes: int64(cfg.MaxImageBytes),
		Image:         imageprep.Options{MaxDim: cfg.MaxImageDim},
		Prompts:       prompts.NewPgStore(database),
		Extractor:     pipeline.NewExtractor(client, validator, cfg.ExtractModel, cfg.LLMMaxTokens, cfg.LLMTimeout),
		Verifier:      pipeline.NewVerifier(client, validator, cfg.VerifyModel, cfg.LLMMaxTokens, cfg.LLMTimeout, cfg.RetryConfidence),
		Usage:         recorder,
		Provider:      client.Provider(),
		Language:      cfg.Language,
	})

	h := &Handler{
		files:    files,
		gate:     access.NewGate(database, recorder, cfg.QuotaWindowDays),
		pipeline: svc,
		audit:    audit,
	}

	log.Printf("Radar extract ready: provider=%s extract=%s verify=%s", cfg.LLMProvider, cfg.ExtractModel, cfg.VerifyModel)
	lambda.Start(h.Handle)
}

// newLLMClient builds the configured provider. The API key is read from the
// environment first, then from the LLM secret.
func newLLMClient(ctx context.Context, cfg config.Config, secrets awsutil.SecretsProvider) (llm.Client, error) {
	field, ok := apiKeyFields[cfg.LLMProvider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", cfg.LLMProvider)
	}
	key := os.Getenv(field)
	if key == "" {
		var err error
		key, err = secrets.GetSecretField(ctx, cfg.LLMSecretARN, field)
		if err != nil {
			return nil, fmt.Errorf("get api key: %w", err)
		}
	}

	switch cfg.LLMProvider {
	case llm.ProviderAnthropic:
		return anthropic.New(key), nil
	case llm.ProviderGemini:
		return gemini.New(ctx, key)
	default:
		return openai.New(key), nil
	}
}
