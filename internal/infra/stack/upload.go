// Where: pipegen/internal/infra/stack/upload.go
// What: S3 upload of templates too large for an inline request.
package stack

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/poruru-code/pipegen/internal/meta"
)

// MaxTemplateBodySize is the largest template CloudFormation accepts inline.
const MaxTemplateBodySize = 51200

// ErrTemplateTooLarge reports an oversized template with nowhere to upload it.
var ErrTemplateTooLarge = errors.New("template exceeds the inline size limit")

// S3API is the subset of the S3 client used for template uploads.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// TemplateUploader stores templates in S3 and returns their HTTPS URL.
type TemplateUploader struct {
	Client S3API
	Region string
}

// Upload writes body under a content-addressed key for stackName.
func (u *TemplateUploader) Upload(ctx context.Context, bucket, stackName, body string) (string, error) {
	if u.Client == nil {
		return "", fmt.Errorf("s3 client is nil")
	}
	key := TemplateKey(stackName, body)
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(body),
		ContentType: aws.String("application/x-yaml"),
	})
	if err != nil {
		return "", fmt.Errorf("upload template to s3://%s/%s: %w", bucket, key, err)
	}
	return TemplateURL(bucket, u.Region, key), nil
}

// TemplateKey is pipegen/<stack>/template-<sha256>.yaml.
func TemplateKey(stackName, body string) string {
	sum := sha256.Sum256([]byte(body))
	return path.Join(meta.TemplateKeyPrefix, stackName, "template-"+hex.EncodeToString(sum[:])+".yaml")
}

// TemplateURL is the virtual-hosted style URL of an object.
func TemplateURL(bucket, region, key string) string {
	if region == "" || region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}
