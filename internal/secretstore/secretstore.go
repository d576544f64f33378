// Package secretstore implements the getSecret(arn) contract (spec §6)
// against AWS Secrets Manager, using the same aws-sdk-go-v2 module family
// the teacher already depends on for S3.
package secretstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Client fetches and decodes secrets stored as a JSON object mapping
// names (ALPACA_API_KEY, ALPACA_API_SECRET, MASSIVE_API_KEY, token,
// password, ...) to string values.
type Client struct {
	sm *secretsmanager.Client
}

// New builds a Client for the given AWS region.
func New(ctx context.Context, region string) (*Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Client{sm: secretsmanager.NewFromConfig(cfg)}, nil
}

// GetSecret fetches the secret at arn and decodes it as a flat JSON
// object of string values.
func (c *Client) GetSecret(ctx context.Context, arn string) (map[string]string, error) {
	if arn == "" {
		return nil, fmt.Errorf("secretstore: empty ARN")
	}

	out, err := c.sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(arn),
	})
	if err != nil {
		return nil, fmt.Errorf("get secret value: %w", err)
	}

	raw := aws.ToString(out.SecretString)
	values := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode secret JSON: %w", err)
	}
	return values, nil
}
