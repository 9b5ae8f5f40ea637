package s3

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"uplora/internal/config"
	"uplora/internal/domain/upload"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

const (
	emptyAWSSessionToken                = ""
	errFailedCreateAWSSessionFmt        = "failed to create AWS session: %w"
	errFailedCreateMultipartUploadFmt   = "failed to create multipart upload: %w"
	errFailedPresignUploadPartFmt       = "failed to presign upload part: %w"
	errFailedCompleteMultipartUploadFmt = "failed to complete multipart upload: %w"
	errFailedAbortMultipartUploadFmt    = "failed to abort multipart upload: %w"
	errFailedGeneratePresignedPutURLFmt = "failed to generate presigned upload URL: %w"
	errFailedGeneratePresignedGetURLFmt = "failed to generate presigned download URL: %w"
	errFailedDeleteObjectFmt            = "failed to delete object: %w"
	errFailedHeadObjectFmt              = "failed to read object metadata: %w"
	errFailedListMultipartUploadsFmt    = "failed to list multipart uploads: %w"
	awsCodeNotFound                     = "NotFound"
	errMissingUploadIDFmt               = "object store returned no upload id for %s"
	errNoPartsFmt                       = "at least one part is required"
)

// ErrObjectNotFound is returned by ObjectSize when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Client talks to one bucket. All presigned URLs are issued for that bucket.
type Client struct {
	svc    *s3.S3
	bucket string
}

func NewClient(cfg *config.AWSConfig) (*Client, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			emptyAWSSessionToken,
		)
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateAWSSessionFmt, err)
	}

	return &Client{
		svc:    s3.New(sess),
		bucket: cfg.Bucket,
	}, nil
}

func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error) {
	out, err := c.svc.CreateMultipartUploadWithContext(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf(errFailedCreateMultipartUploadFmt, err)
	}

	uploadID := aws.StringValue(out.UploadId)
	if uploadID == "" {
		return "", fmt.Errorf(errMissingUploadIDFmt, key)
	}
	return uploadID, nil
}

func (c *Client) PresignUploadPart(ctx context.Context, key, uploadID string, partNumber int64, expiry time.Duration) (string, error) {
	req, _ := c.svc.UploadPartRequest(&s3.UploadPartInput{
		Bucket:     aws.String(c.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int64(partNumber),
	})
	req.SetContext(ctx)

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf(errFailedPresignUploadPartFmt, err)
	}

	return url, nil
}

// CompleteMultipartUpload stitches the parts in ascending part order.
func (c *Client) CompleteMultipartUpload(ctx context.Context, key, uploadID string, parts []upload.Part) error {
	if len(parts) == 0 {
		return fmt.Errorf(errNoPartsFmt)
	}

	sorted := make([]upload.Part, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	completed := make([]*s3.CompletedPart, 0, len(sorted))
	for _, p := range sorted {
		completed = append(completed, &s3.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int64(p.PartNumber),
		})
	}

	_, err := c.svc.CompleteMultipartUploadWithContext(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &s3.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf(errFailedCompleteMultipartUploadFmt, err)
	}

	return nil
}

// AbortMultipartUpload treats an unknown upload as already aborted.
func (c *Client) AbortMultipartUpload(ctx context.Context, key, uploadID string) error {
	_, err := c.svc.AbortMultipartUploadWithContext(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchUpload {
			return nil
		}
		return fmt.Errorf(errFailedAbortMultipartUploadFmt, err)
	}

	return nil
}

// AbortUploadsForKey aborts every open multipart upload stored under
// exactly key and reports how many it aborted.
func (c *Client) AbortUploadsForKey(ctx context.Context, key string) (int, error) {
	var uploadIDs []string
	err := c.svc.ListMultipartUploadsPagesWithContext(ctx, &s3.ListMultipartUploadsInput{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(key),
	}, func(page *s3.ListMultipartUploadsOutput, _ bool) bool {
		for _, u := range page.Uploads {
			if aws.StringValue(u.Key) == key {
				uploadIDs = append(uploadIDs, aws.StringValue(u.UploadId))
			}
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf(errFailedListMultipartUploadsFmt, err)
	}

	aborted := 0
	for _, id := range uploadIDs {
		if err := c.AbortMultipartUpload(ctx, key, id); err != nil {
			return aborted, err
		}
		aborted++
	}

	return aborted, nil
}

func (c *Client) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	req, _ := c.svc.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	req.SetContext(ctx)

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf(errFailedGeneratePresignedPutURLFmt, err)
	}

	return url, nil
}

func (c *Client) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, _ := c.svc.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	req.SetContext(ctx)

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf(errFailedGeneratePresignedGetURLFmt, err)
	}

	return url, nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.svc.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		return fmt.Errorf(errFailedDeleteObjectFmt, err)
	}

	return nil
}

// ObjectSize returns the stored size of key in bytes.
func (c *Client) ObjectSize(ctx context.Context, key string) (int64, error) {
	out, err := c.svc.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == awsCodeNotFound || aerr.Code() == s3.ErrCodeNoSuchKey) {
			return 0, ErrObjectNotFound
		}
		return 0, fmt.Errorf(errFailedHeadObjectFmt, err)
	}

	return aws.Int64Value(out.ContentLength), nil
}
