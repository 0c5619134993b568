package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/contactalia/contactalia-backend/pkg/config"
	"github.com/contactalia/contactalia-backend/pkg/logger"
)

const pingTimeout = 5 * time.Second

var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) presigner {
		return s3.NewPresignClient(c)
	}
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Object is one listed blob.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Client talks to the S3-compatible media bucket.
type Client struct {
	api           objectAPI
	presign       presigner
	bucket        string
	endpoint      string
	publicBaseURL string
	logg          *logger.Logger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// NewClient builds a client from static credentials when provided, falling
// back to the default AWS credential chain otherwise.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("storage bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	})

	return &Client{
		api:           client,
		presign:       newS3PresignClient(client),
		bucket:        cfg.Bucket,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logg:          logg,
	}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

// Put uploads the body under key.
func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if c == nil || c.api == nil {
		return errors.New("storage client not initialized")
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := c.api.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Delete removes the object. Missing keys are not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil || c.api == nil {
		return errors.New("storage client not initialized")
	}
	if _, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// List walks every object under prefix, page by page, calling fn for each
// page. Returning an error from fn stops the walk.
func (c *Client) List(ctx context.Context, prefix string, fn func([]Object) error) error {
	if c == nil || c.api == nil {
		return errors.New("storage client not initialized")
	}
	input := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	paginator := s3.NewListObjectsV2Paginator(c.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("list objects: %w", err)
		}
		batch := make([]Object, 0, len(page.Contents))
		for _, obj := range page.Contents {
			item := Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				item.LastModified = *obj.LastModified
			}
			batch = append(batch, item)
		}
		if err := fn(batch); err != nil {
			return err
		}
	}
	return nil
}

// PublicURL returns the public address of key.
func (c *Client) PublicURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if c.publicBaseURL != "" {
		return c.publicBaseURL + "/" + escaped
	}
	if c.endpoint != "" {
		return c.endpoint + "/" + c.bucket + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucket, escaped)
}

// PresignGet returns a temporary download URL for key.
func (c *Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if c == nil || c.presign == nil {
		return "", errors.New("storage client not initialized")
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.api == nil {
		return errors.New("storage client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); err != nil {
		if c.logg != nil {
			c.logg.Warn(ctx, "storage.ping.failed")
		}
		return fmt.Errorf("head bucket: %w", err)
	}
	return nil
}
