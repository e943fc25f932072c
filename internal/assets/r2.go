package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"videotube/internal/config"
	"videotube/internal/logging"
	"videotube/internal/metrics"
)

// ObjectStore is the slice of the S3 client R2Host needs.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// R2Host uploads to Cloudflare R2 through its S3-compatible API.
type R2Host struct {
	client    ObjectStore
	bucket    string
	publicURL string
	breaker   *gobreaker.CircuitBreaker[struct{}]
}

// NewR2Host constructs an S3-compatible client for Cloudflare R2.
func NewR2Host(ctx context.Context, cfg *config.Config) (*R2Host, error) {
	if !cfg.AssetsConfigured() {
		return nil, fmt.Errorf("missing Cloudflare R2 configuration")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for R2: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return NewR2HostWithClient(client, cfg.R2BucketName, cfg.R2PublicURL), nil
}

func NewR2HostWithClient(client ObjectStore, bucket, publicURL string) *R2Host {
	log := logging.WithComponent("assets")
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "r2",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
		// Rejected input is not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrUnsupportedMedia) || errors.Is(err, ErrFileTooLarge)
		},
	})

	return &R2Host{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
		breaker:   breaker,
	}
}

func (h *R2Host) Upload(ctx context.Context, localPath string, kind Kind) (string, error) {
	limit := int64(MaxImageBytes)
	if kind == KindVideo {
		limit = MaxVideoBytes
	}

	data, err := readLimited(localPath, limit)
	if err != nil {
		return "", err
	}

	body, contentType, ext := data, sniff(data), strings.ToLower(filepath.Ext(localPath))
	if kind == KindVideo {
		if !strings.HasPrefix(contentType, "video/") && contentType != "application/octet-stream" {
			return "", ErrUnsupportedMedia
		}
	} else {
		if body, err = normalizeImage(data, kind); err != nil {
			return "", err
		}
		contentType, ext = contentTypeJPEG, ".jpg"
	}

	key := fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), ext)
	_, err = h.breaker.Execute(func() (struct{}, error) {
		_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:       aws.String(h.bucket),
			Key:          aws.String(key),
			Body:         bytes.NewReader(body),
			ContentType:  aws.String(contentType),
			CacheControl: aws.String("public, max-age=31536000, immutable"),
		})
		return struct{}{}, err
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to r2: %w", err)
	}

	return h.publicURL + "/" + key, nil
}

// Delete removes an object previously returned by Upload. URLs outside the
// bucket's public prefix, such as the shared default avatar, are ignored.
func (h *R2Host) Delete(ctx context.Context, url string) error {
	key, ok := h.keyFor(url)
	if !ok {
		return nil
	}
	_, err := h.breaker.Execute(func() (struct{}, error) {
		_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(h.bucket),
			Key:    aws.String(key),
		})
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("failed to delete from r2: %w", err)
	}
	return nil
}

func (h *R2Host) keyFor(url string) (string, bool) {
	prefix := h.publicURL + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func readLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrUnsupportedMedia
	}
	return data, nil
}
