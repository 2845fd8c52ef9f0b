package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Credentials authenticate against a cluster admin API.
type Credentials struct {
	Username string
	Password string
}

// DefaultUsernameKey and DefaultPasswordKey name the fields read from a
// secret when the configuration does not override them.
const (
	DefaultUsernameKey = "username"
	DefaultPasswordKey = "password"
)

// API is the slice of the Secrets Manager client the resolver needs. Tests
// substitute a fake.
type API interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver fetches cluster credentials from AWS Secrets Manager.
type Resolver struct {
	client API
}

// NewResolver builds a resolver for the given region. endpointHost, when
// non-empty, overrides the service endpoint (VPC interface endpoints).
func NewResolver(ctx context.Context, region, endpointHost string) (*Resolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	var optFns []func(*secretsmanager.Options)
	if endpointHost != "" {
		optFns = append(optFns, func(o *secretsmanager.Options) {
			o.BaseEndpoint = aws.String("https://" + endpointHost)
		})
	}
	return &Resolver{client: secretsmanager.NewFromConfig(cfg, optFns...)}, nil
}

// NewResolverFromClient wraps an existing client.
func NewResolverFromClient(client API) *Resolver {
	return &Resolver{client: client}
}

// Resolve fetches the secret and extracts the username and password fields.
func (r *Resolver) Resolve(ctx context.Context, secretARN, usernameKey, passwordKey string) (Credentials, error) {
	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretARN),
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to fetch secret %s: %w", secretARN, err)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &fields); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse secret %s: %w", secretARN, err)
	}

	username, ok := fields[usernameKey]
	if !ok {
		return Credentials{}, fmt.Errorf("secret %s does not contain key %q", secretARN, usernameKey)
	}
	password, ok := fields[passwordKey]
	if !ok {
		return Credentials{}, fmt.Errorf("secret %s does not contain key %q", secretARN, passwordKey)
	}
	return Credentials{Username: username, Password: password}, nil
}

// RegionFromARN extracts the region field of an ARN
// (arn:aws:service:region:account:resource). Empty for malformed input.
func RegionFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}
