// Package blob selects a blob store backend from the process environment.
package blob

import (
	"context"
	"fmt"
	"os"

	"fibretrace/internal/infra/blob/core"
	"fibretrace/internal/infra/blob/fs"
	"fibretrace/internal/infra/blob/memory"
	"fibretrace/internal/infra/blob/s3"
)

// Re-exported abstractions so callers depend on one package.
type (
	Store            = core.Store
	Driver           = core.Driver
	Info             = core.Info
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrUnsupported mirrors core.ErrUnsupported.
var ErrUnsupported = core.ErrUnsupported

// Open selects a blob store implementation using environment variables.
//
//	FIBRETRACE_BLOB_DRIVER: fs|s3|memory (default fs)
//	FIBRETRACE_BLOB_FS_ROOT: directory root when driver=fs (default ./blobdata)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("FIBRETRACE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("FIBRETRACE_BLOB_FS_ROOT")
		return fs.New(root)
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
