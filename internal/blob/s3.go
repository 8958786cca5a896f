package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/birthapp/birthapp-go/internal/apperr"
	"github.com/birthapp/birthapp-go/internal/model"
	"github.com/birthapp/birthapp-go/internal/snapshot"
)

const s3Timeout = 30 * time.Second

// S3Config locates the records document in an S3-compatible bucket.
type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string // optional, e.g. a MinIO URL; enables path-style addressing
	AccessKeyID     string
	SecretAccessKey string
}

// s3API is the subset of *s3.Client used here.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 keeps the document as a single object.
type S3 struct {
	client s3API
	bucket string
	key    string
}

// NewS3 builds an S3 client from cfg. Bucket, Key and credentials are required.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" || cfg.Key == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, apperr.NotConfigured("s3 blob store (S3_BUCKET, BLOB_JSON_KEY, S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY)")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3WithClient(client, cfg.Bucket, cfg.Key), nil
}

func newS3WithClient(client s3API, bucket, key string) *S3 {
	return &S3{client: client, bucket: bucket, key: key}
}

func (s *S3) Kind() string { return "s3" }

func (s *S3) Get(ctx context.Context) ([]model.Record, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s3Timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, classify("get", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, false, &apperr.NetworkError{Service: "s3", Op: "get", Err: err}
	}

	records, err := snapshot.DecodeJSON(data)
	if err != nil {
		return nil, false, &apperr.UpstreamError{Service: "s3", Op: "get", Body: err.Error()}
	}
	return records, true, nil
}

func (s *S3) Set(ctx context.Context, records []model.Record) error {
	payload, err := snapshot.EncodeJSON(records)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s3Timeout)
	defer cancel()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.key),
		Body:         bytes.NewReader(payload),
		ContentType:  aws.String("application/json"),
		CacheControl: aws.String("no-cache"),
	})
	if err != nil {
		return classify("put", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NoSuchKey" || code == "NotFound"
	}
	return false
}

// classify maps SDK failures onto upstream (the service answered) or network
// (it did not) errors.
func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		status := 0
		var respErr *awshttp.ResponseError
		if errors.As(err, &respErr) {
			status = respErr.HTTPStatusCode()
		}
		return &apperr.UpstreamError{Service: "s3", Op: op, Status: status, Body: apiErr.ErrorCode() + ": " + apiErr.ErrorMessage()}
	}
	return &apperr.NetworkError{Service: "s3", Op: op, Err: err}
}
