package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type objectPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// PresignResolver issues short-lived GET urls for objects in a private R2 bucket.
// Keys that are already absolute urls pass through.
type PresignResolver struct {
	presigner objectPresigner
	bucket    string
	ttl       time.Duration
}

func NewPresignResolver(cfg Config) (*PresignResolver, error) {
	if cfg.AccountID == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("media presign requires CLOUDFLARE_ACCOUNT_ID and CLOUDFLARE_BUCKET_NAME")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)),
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		Region: region,
	})
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PresignResolver{presigner: s3.NewPresignClient(client), bucket: cfg.BucketName, ttl: ttl}, nil
}

func (r *PresignResolver) Resolve(ctx context.Context, keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || isAbsolute(k) {
			out = append(out, k)
			continue
		}
		req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(r.bucket),
			Key:    aws.String(strings.TrimLeft(k, "/")),
		}, func(opts *s3.PresignOptions) {
			opts.Expires = r.ttl
		})
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", k, err)
		}
		out = append(out, req.URL)
	}
	return out, nil
}
