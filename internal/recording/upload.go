package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/oszuidwest/zwfm-screenrecorder/internal/config"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/types"
	"github.com/oszuidwest/zwfm-screenrecorder/internal/util"
)

// objectPutter is the part of the S3 client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader sends finished recordings to an S3 bucket.
type Uploader struct {
	client objectPutter
	bucket string
	prefix string
	mode   types.StorageMode
	delay  func(attempt int) time.Duration
}

// createS3Client creates an S3 client with the given configuration.
func createS3Client(cfg *config.S3Config) *s3.Client {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = creds
			o.Region = region
		},
	}

	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.New(s3.Options{}, options...)
}

// NewUploader returns an Uploader for cfg, or nil if S3 is not configured.
func NewUploader(cfg *config.S3Config, mode types.StorageMode) *Uploader {
	if !cfg.IsConfigured() {
		return nil
	}
	return newUploader(createS3Client(cfg), cfg, mode)
}

func newUploader(client objectPutter, cfg *config.S3Config, mode types.StorageMode) *Uploader {
	backoff := util.NewBackoff(InitialUploadRetryDelay, MaxUploadRetryDelay)
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		mode:   mode,
		delay:  func(int) time.Duration { return backoff.Next() },
	}
}

// Key returns the object key for a local recording.
func (u *Uploader) Key(localPath string) string {
	name := filepath.Base(localPath)
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload sends the recording at localPath to the bucket, retrying with
// backoff, and returns the object key. In S3-only mode the local file is
// removed after a successful upload.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	info, err := os.Stat(localPath)
	if err != nil || info.Size() == 0 {
		return "", fmt.Errorf("%w: %s", ErrNothingToUpload, localPath)
	}

	key := u.Key(localPath)

	var lastErr error
	for attempt := range MaxUploadAttempts {
		if attempt > 0 {
			wait := u.delay(attempt)
			slog.Info("retrying upload", "key", key, "attempt", attempt+1, "wait", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", util.WrapError("upload recording", context.Cause(ctx))
			}
		}

		lastErr = u.put(ctx, localPath, key, info.Size())
		if lastErr == nil {
			break
		}
		slog.Error("upload failed", "key", key, "attempt", attempt+1, "error", lastErr)
	}
	if lastErr != nil {
		return "", util.WrapError("upload recording", lastErr)
	}

	slog.Info("upload completed", "bucket", u.bucket, "key", key)

	if !u.mode.KeepsLocal() {
		if err := os.Remove(localPath); err != nil {
			slog.Warn("failed to delete local file after upload", "path", localPath, "error", err)
		} else {
			slog.Debug("deleted local file after upload", "path", localPath)
		}
	}

	return key, nil
}

func (u *Uploader) put(ctx context.Context, localPath, key string, size int64) error {
	ctx, cancel := context.WithTimeoutCause(ctx, UploadTimeout, errors.New("s3 upload timeout"))
	defer cancel()

	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer util.SafeCloseFunc(file, "recording file")()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType(localPath)),
	})
	return err
}

// contentType returns the MIME type for a recording file name.
func contentType(localPath string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(localPath))]; ok {
		return ct
	}
	return "application/octet-stream"
}
