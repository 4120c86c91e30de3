package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type stubS3 struct {
	keys []string
	err  error
}

func (s *stubS3) PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.keys = append(s.keys, *input.Key)
	return &s3.PutObjectOutput{}, nil
}

func TestMirrorUploadAllKeys(t *testing.T) {
	dir := t.TempDir()
	names := []string{"01-base.png", "02-red.png"}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("img"), 0o644); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	stub := &stubS3{}
	m := &Mirror{client: stub, bucket: "artifacts", prefix: "jobs"}
	if err := m.UploadAll(context.Background(), "job-9", dir, names); err != nil {
		t.Fatalf("UploadAll returned error: %v", err)
	}

	want := []string{"jobs/job-9/01-base.png", "jobs/job-9/02-red.png"}
	if len(stub.keys) != len(want) {
		t.Fatalf("uploaded keys = %#v, want %#v", stub.keys, want)
	}
	for i := range want {
		if stub.keys[i] != want[i] {
			t.Fatalf("key[%d] = %q, want %q", i, stub.keys[i], want[i])
		}
	}
}

func TestMirrorUploadAllStopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "01-base.png"), []byte("img"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	m := &Mirror{client: &stubS3{err: errors.New("denied")}, bucket: "artifacts", prefix: "jobs"}
	if err := m.UploadAll(context.Background(), "job-9", dir, []string{"01-base.png"}); err == nil {
		t.Fatal("expected error from failing client")
	}
}

func TestMirrorUploadMissingLocalFile(t *testing.T) {
	m := &Mirror{client: &stubS3{}, bucket: "artifacts", prefix: "jobs"}
	if err := m.Upload(context.Background(), "job-9", "gone.png", filepath.Join(t.TempDir(), "gone.png")); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}
