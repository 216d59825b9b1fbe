package di

import (
	"context"

	"photopedia-backend/application/ports"
	"photopedia-backend/infrastructure/config"
	"photopedia-backend/infrastructure/persistence/dynamodb"
	"photopedia-backend/infrastructure/storage"
	"photopedia-backend/pkg/auth"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideS3Client creates an S3 client
func ProvideS3Client(awsCfg aws.Config) *awss3.Client {
	return awss3.NewFromConfig(awsCfg)
}

// ProvideUserRepository creates the user repository on its table
func ProvideUserRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.UserRepository {
	return dynamodb.NewUserRepository(dynamodb.NewTable(client, cfg.UsersTable, logger), logger)
}

// ProvideEventRepository creates the event repository on its table
func ProvideEventRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EventRepository {
	return dynamodb.NewEventRepository(dynamodb.NewTable(client, cfg.EventsTable, logger), logger)
}

// ProvideMediaRepository creates the media repository on its table
func ProvideMediaRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.MediaRepository {
	return dynamodb.NewMediaRepository(dynamodb.NewTable(client, cfg.MediaTable, logger), logger)
}

// ProvideMediaStorage creates the object storage collaborator
func ProvideMediaStorage(client *awss3.Client, cfg *config.Config, logger *zap.Logger) *storage.MediaStorage {
	return storage.NewMediaStorage(client, cfg.MediaBucket, logger)
}

// ProvideTokenVerifier creates the JWT token verifier
func ProvideTokenVerifier(cfg *config.Config) (auth.TokenVerifier, error) {
	return auth.NewJWTVerifier(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
	})
}

// ProvideGuard creates the access control guard
func ProvideGuard(verifier auth.TokenVerifier, users ports.UserRepository, logger *zap.Logger) *auth.Guard {
	return auth.NewGuard(verifier, users, logger)
}
