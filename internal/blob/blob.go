// Package blob re-exports the blob storage abstractions and selects a backend
// from configuration.
package blob

import (
	"context"
	"fmt"

	"standcore/internal/blob/core"
	"standcore/internal/config"
	fsblob "standcore/internal/infra/blob/fs"
	memblob "standcore/internal/infra/blob/memory"
	s3blob "standcore/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// ErrUnsupported indicates an operation isn't supported by a driver.
var ErrUnsupported = core.ErrUnsupported

// Open selects a blob store implementation from the configuration.
func Open(ctx context.Context, cfg config.Config) (Store, error) {
	switch Driver(cfg.BlobDriver) {
	case DriverFilesystem:
		return fsblob.New(cfg.BlobDir)
	case DriverS3:
		return s3blob.New(ctx, s3blob.Config{Bucket: cfg.S3Bucket, Prefix: cfg.S3Prefix})
	case DriverMemory:
		return memblob.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.BlobDriver)
	}
}
