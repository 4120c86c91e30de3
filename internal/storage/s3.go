package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the slice of the S3 client the mirror needs.
type s3API interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Mirror copies generated artifacts into an S3 bucket after a successful
// export. Mirroring is best-effort; callers log failures and keep the job
// result unchanged.
type Mirror struct {
	client s3API
	bucket string
	prefix string
}

// NewMirror builds a Mirror against the given bucket. A non-empty
// credentialsFile overrides the shared-credentials location; otherwise the
// default AWS resolution chain applies.
func NewMirror(ctx context.Context, bucket, prefix, credentialsFile string) (*Mirror, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if credentialsFile != "" {
		opts = append(opts, awsconfig.WithSharedCredentialsFiles([]string{credentialsFile}))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: initialize aws: %w", err)
	}
	return &Mirror{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// Upload copies one artifact to <prefix>/<jobID>/<name>.
func (m *Mirror) Upload(ctx context.Context, jobID, name, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("storage: open artifact: %w", err)
	}
	defer f.Close()

	key := path.Join(m.prefix, jobID, name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := m.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}

// UploadAll mirrors every named artifact from dir, stopping at the first
// failure.
func (m *Mirror) UploadAll(ctx context.Context, jobID, dir string, names []string) error {
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.Upload(ctx, jobID, name, filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}
