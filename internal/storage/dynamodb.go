package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

// sessionItem is the DynamoDB row holding one persisted value
type sessionItem struct {
	Key       string `dynamodbav:"SessionKey"`
	Value     []byte `dynamodbav:"Value"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// DynamoDBStore implements TokenStore using AWS DynamoDB
type DynamoDBStore struct {
	client *dynamodb.Client
	config DynamoConfig
	logger zerolog.Logger
}

// NewDynamoDBStore creates a new DynamoDB store
func NewDynamoDBStore(ctx context.Context, cfg DynamoConfig, logger zerolog.Logger) (*DynamoDBStore, error) {
	var client *dynamodb.Client

	if cfg.Mode == DynamoModeLocal {
		// LoadDefaultConfig probes IMDS, which hangs on EC2 when static
		// credentials are intended.
		client = dynamodb.New(dynamodb.Options{
			Region:       cfg.Region,
			BaseEndpoint: aws.String(cfg.Endpoint),
			Credentials:  credentials.NewStaticCredentialsProvider("local", "local", ""),
		})
	} else {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client = dynamodb.NewFromConfig(awsCfg)
	}

	if cfg.Mode == DynamoModeLocal {
		if err := CreateTableIfNotExist(ctx, client, cfg, logger); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("mode", string(cfg.Mode)).
		Str("region", cfg.Region).
		Str("table", cfg.SessionTable).
		Msg("DynamoDB session store initialized")

	return &DynamoDBStore{client: client, config: cfg, logger: logger}, nil
}

func (s *DynamoDBStore) key(key string) (map[string]dbtypes.AttributeValue, error) {
	return attributevalue.MarshalMap(struct {
		Key string `dynamodbav:"SessionKey"`
	}{key})
}

func (s *DynamoDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key: %w", err)
	}
	proj := expression.NamesList(expression.Name("SessionKey"), expression.Name("Value"))
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(s.config.SessionTable),
		Key:                      k,
		ProjectionExpression:     expr.Projection(),
		ExpressionAttributeNames: expr.Names(),
		ConsistentRead:           aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return item.Value, nil
}

func (s *DynamoDBStore) Put(ctx context.Context, key string, value []byte) error {
	item, err := attributevalue.MarshalMap(sessionItem{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.SessionTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *DynamoDBStore) Delete(ctx context.Context, key string) error {
	k, err := s.key(key)
	if err != nil {
		return fmt.Errorf("failed to marshal key: %w", err)
	}
	_, err = s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.SessionTable),
		Key:       k,
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *DynamoDBStore) Close() error { return nil }

// NewStore creates the backend selected by cfg
func NewStore(ctx context.Context, cfg Config, logger zerolog.Logger) (TokenStore, error) {
	switch cfg.Backend {
	case BackendDynamo:
		return NewDynamoDBStore(ctx, cfg.Dynamo, logger)
	case BackendRedis:
		return NewRedisStore(ctx, cfg.Redis, logger)
	case BackendMemory:
		logger.Info().Msg("session persisted in memory only")
		return NewMemoryStore(), nil
	case BackendNone:
		logger.Info().Msg("session persistence disabled (SESSION_BACKEND=none)")
		return NewNoopStore(), nil
	default:
		logger.Info().Str("dir", cfg.Dir).Msg("session persisted to file")
		return NewFileStore(cfg.Dir)
	}
}
