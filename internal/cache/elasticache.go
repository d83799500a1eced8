package cache

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const (
	elastiCacheService = "elasticache"
	// IAM auth tokens are valid for at most 15 minutes.
	iamTokenTTL = 15 * time.Minute
	// SHA-256 of an empty payload.
	emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// IAMAuthConfig configures IAM authentication against an ElastiCache
// replication group or serverless cache.
type IAMAuthConfig struct {
	CacheName string // replication group ID or serverless cache name
	User      string // ElastiCache user ID with IAM auth enabled
	Region    string

	// Optional static credentials. When empty the default AWS credential
	// chain (env, shared config, IMDS, ...) is used.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// IAMTokenGenerator produces presigned ElastiCache connect tokens.
type IAMTokenGenerator struct {
	creds     aws.CredentialsProvider
	signer    *v4.Signer
	region    string
	cacheName string
	user      string
	now       func() time.Time
}

// NewIAMTokenGenerator resolves AWS credentials for cfg and returns a
// generator. It does not contact AWS until a token is requested.
func NewIAMTokenGenerator(ctx context.Context, cfg IAMAuthConfig) (*IAMTokenGenerator, error) {
	if cfg.CacheName == "" || cfg.User == "" {
		return nil, fmt.Errorf("elasticache iam auth requires cache name and user")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		return nil, fmt.Errorf("elasticache iam auth requires an aws region")
	}

	return newIAMTokenGenerator(awsCfg.Credentials, awsCfg.Region, cfg.CacheName, cfg.User), nil
}

func newIAMTokenGenerator(creds aws.CredentialsProvider, region, cacheName, user string) *IAMTokenGenerator {
	return &IAMTokenGenerator{
		creds:     aws.NewCredentialsCache(creds),
		signer:    v4.NewSigner(),
		region:    region,
		cacheName: cacheName,
		user:      user,
		now:       time.Now,
	}
}

// Token returns a presigned connect URL (without scheme) that ElastiCache
// accepts as the AUTH password for g.user.
func (g *IAMTokenGenerator) Token(ctx context.Context) (string, error) {
	query := url.Values{}
	query.Set("Action", "connect")
	query.Set("User", g.user)
	query.Set("X-Amz-Expires", fmt.Sprintf("%d", int(iamTokenTTL.Seconds())))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+g.cacheName+"/?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build iam auth request: %w", err)
	}

	creds, err := g.creds.Retrieve(ctx)
	if err != nil {
		return "", fmt.Errorf("retrieve aws credentials: %w", err)
	}

	signed, _, err := g.signer.PresignHTTP(ctx, creds, req, emptyPayloadHash, elastiCacheService, g.region, g.now())
	if err != nil {
		return "", fmt.Errorf("presign iam auth request: %w", err)
	}
	return strings.TrimPrefix(signed, "http://"), nil
}

// CredentialsProvider adapts the generator to RedisCacheConfig.CredentialsProvider.
func (g *IAMTokenGenerator) CredentialsProvider() func(ctx context.Context) (string, string, error) {
	return func(ctx context.Context) (string, string, error) {
		token, err := g.Token(ctx)
		if err != nil {
			return "", "", err
		}
		return g.user, token, nil
	}
}
