package media

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	AccountID       string        `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string        `env:"CLOUDFLARE_ACCESS_KEY_ID"`
	SecretAccessKey string        `env:"CLOUDFLARE_SECRET_ACCESS_KEY"`
	BucketName      string        `env:"CLOUDFLARE_BUCKET_NAME"`
	Region          string        `env:"CLOUDFLARE_REGION,default=auto"`
	PublicURL       string        `env:"MEDIA_PUBLIC_URL"`
	Presign         bool          `env:"MEDIA_PRESIGN,default=false"`
	PresignTTL      time.Duration `env:"MEDIA_PRESIGN_TTL,default=1h"`
}

// Resolver turns stored media keys into URLs a client can fetch. The result has the same
// length and order as keys.
type Resolver interface {
	Resolve(ctx context.Context, keys []string) ([]string, error)
}

// NewResolver presigns against R2 when MEDIA_PRESIGN is set and falls back to joining keys
// onto the public bucket URL.
func NewResolver(cfg Config) (Resolver, error) {
	if cfg.Presign {
		return NewPresignResolver(cfg)
	}
	return NewPublicResolver(cfg.PublicURL), nil
}

type PublicResolver struct {
	base string
}

func NewPublicResolver(baseURL string) *PublicResolver {
	return &PublicResolver{base: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

func (r *PublicResolver) Resolve(_ context.Context, keys []string) ([]string, error) {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.url(k))
	}
	return out, nil
}

func (r *PublicResolver) url(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || isAbsolute(key) || r.base == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", r.base, strings.TrimLeft(key, "/"))
}

func isAbsolute(key string) bool {
	return strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://")
}
