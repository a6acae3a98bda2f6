// Where: pipegen/internal/infra/stack/aws_factory.go
// What: AWS client construction for stack deployment.
// Why: Encapsulate SDK configuration, explicit credentials, and local endpoints.
package stack

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/poruru-code/pipegen/internal/infra/envutil"
)

// ClientOptions selects the region; an empty region defers to the SDK chain.
type ClientOptions struct {
	Region string
}

// NewDeployer builds a Deployer backed by real CloudFormation and S3 clients.
func NewDeployer(ctx context.Context, opts ClientOptions, logger zerolog.Logger) (*Deployer, error) {
	cfg, err := loadAWSConfig(ctx, opts.Region)
	if err != nil {
		return nil, err
	}

	cfnClient := cloudformation.NewFromConfig(cfg, func(options *cloudformation.Options) {
		if endpoint := envutil.GetHostEnv("CLOUDFORMATION_ENDPOINT"); endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
		}
	})
	s3Client := s3.NewFromConfig(cfg, func(options *s3.Options) {
		if endpoint := envutil.GetHostEnv("S3_ENDPOINT"); endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
			options.UsePathStyle = true
		}
	})

	return &Deployer{
		API:      cfnClient,
		Uploader: &TemplateUploader{Client: s3Client, Region: cfg.Region},
		Logger:   logger,
	}, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var optFns []func(*config.LoadOptions) error
	if region != "" {
		optFns = append(optFns, config.WithRegion(region))
	}
	accessKey := envutil.GetHostEnv("AWS_ACCESS_KEY_ID")
	secretKey := envutil.GetHostEnv("AWS_SECRET_ACCESS_KEY")
	if accessKey != "" && secretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(accessKey, secretKey, envutil.GetHostEnv("AWS_SESSION_TOKEN"))
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	if cfg.Region == "" {
		return aws.Config{}, fmt.Errorf("aws region is not configured; set AWS_REGION or --region")
	}
	return cfg, nil
}
