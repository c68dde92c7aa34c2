package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// LoadAwsConfig resolves credentials from the default chain, pinned to the s3 region when set
func LoadAwsConfig(ctx context.Context, c S3Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}
