// internal/common/aws/config.go
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Credentials are optional; when empty the default chain (env, shared profile, IAM role) is used.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// LoadConfig resolves the SDK configuration for region.
func LoadConfig(ctx context.Context, region string, creds Credentials) (awssdk.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if creds.AccessKey != "" && creds.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
