package blob

import (
	"context"
	"testing"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	t.Setenv("FIBRETRACE_BLOB_DRIVER", "memory")
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s, want memory", store.Driver())
	}
}

func TestOpenDefaultsToFilesystem(t *testing.T) {
	t.Setenv("FIBRETRACE_BLOB_DRIVER", "")
	t.Setenv("FIBRETRACE_BLOB_FS_ROOT", t.TempDir())
	store, err := Open(context.Background())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s, want fs", store.Driver())
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Setenv("FIBRETRACE_BLOB_DRIVER", "tape")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestOpenS3RequiresBucket(t *testing.T) {
	t.Setenv("FIBRETRACE_BLOB_DRIVER", "s3")
	t.Setenv("FIBRETRACE_BLOB_S3_BUCKET", "")
	if _, err := Open(context.Background()); err == nil {
		t.Fatalf("expected error when bucket is unset")
	}
}
