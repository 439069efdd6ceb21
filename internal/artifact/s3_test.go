package artifact

import (
	"context"
	"testing"
)

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{}); err == nil {
		t.Fatal("expected missing bucket to fail")
	}
}

func TestOpenS3FromEnvRequiresBucket(t *testing.T) {
	t.Setenv("SWEEPCORE_ARTIFACT_S3_BUCKET", "")
	if _, err := OpenS3FromEnv(context.Background()); err == nil {
		t.Fatal("expected missing bucket env to fail")
	}
}
