package cdn

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ObjectAPI is the subset of the S3 client the uploader needs.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// S3Uploader stores assets in a bucket under stories/<yyyy>/<mm>/<uuid><ext>
// and serves them from PublicBaseURL.
type S3Uploader struct {
	api     ObjectAPI
	bucket  string
	baseURL string
	now     func() time.Time
}

func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3UploaderWithAPI(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func NewS3UploaderWithAPI(api ObjectAPI, bucket string, publicBaseURL string) *S3Uploader {
	return &S3Uploader{
		api:     api,
		bucket:  bucket,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		now:     time.Now,
	}
}

// Upload ignores token; bucket access uses the configured credentials.
func (u *S3Uploader) Upload(ctx context.Context, _ string, file File) (string, error) {
	if file.Body == nil {
		return "", fmt.Errorf("upload: empty file")
	}

	contentType := contentTypeOf(file)
	key := u.newKey(extensionOf(file, contentType))

	body, size, err := seekable(file)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", file.Name, err)
	}

	in := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		in.ContentLength = aws.Int64(size)
	}

	if _, err := u.api.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return u.baseURL + "/" + key, nil
}

func (u *S3Uploader) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, u.baseURL+"/")
	if !ok || key == "" {
		return fmt.Errorf("delete %s: url is not served by bucket %s", url, u.bucket)
	}

	if _, err := u.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

func (u *S3Uploader) newKey(ext string) string {
	d := u.now().UTC()
	return fmt.Sprintf("stories/%d/%02d/%s%s", d.Year(), d.Month(), uuid.NewString(), ext)
}

// seekable buffers bodies that cannot seek so the SDK can sign the payload.
func seekable(file File) (io.ReadSeeker, int64, error) {
	if rs, ok := file.Body.(io.ReadSeeker); ok {
		return rs, file.Size, nil
	}

	data, err := io.ReadAll(file.Body)
	if err != nil {
		return nil, 0, err
	}
	return bytes.NewReader(data), int64(len(data)), nil
}
