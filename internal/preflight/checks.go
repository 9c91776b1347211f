package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sys/unix"

	"rulecast/internal/catalog"
	"rulecast/internal/contract"
)

const bucketCheckName = "Manifest bucket"

// BucketAPI is the subset of the S3 client CheckBucket uses.
type BucketAPI interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckContract verifies the configured contract parses and validates. An
// empty path selects the built-in rules and always passes.
func CheckContract(path string) Result {
	const name = "Contract"
	if strings.TrimSpace(path) == "" {
		builtin := contract.Builtin()
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("built-in rules (version %s)", builtin.Version)}
	}
	c, err := contract.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (version %s)", path, c.Version)}
}

// CheckCatalog opens the catalog database, applying migrations if needed.
func CheckCatalog(path string) Result {
	const name = "Catalog"
	store, err := catalog.Open(path)
	if err != nil {
		if errors.Is(err, catalog.ErrSchemaMismatch) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: schema mismatch; move the file aside to rebuild)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	_ = store.Close()
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckBucket verifies the manifest bucket exists and the credentials can
// reach it. It uses a 10-second timeout and a single attempt.
func CheckBucket(ctx context.Context, api BucketAPI, bucket string) Result {
	if strings.TrimSpace(bucket) == "" {
		return Result{Name: bucketCheckName, Detail: "bucket missing"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := api.HeadBucket(checkCtx, &s3.HeadBucketInput{Bucket: &bucket}); err != nil {
		return Result{Name: bucketCheckName, Detail: summarizeBucketError(bucket, err)}
	}
	return Result{Name: bucketCheckName, Passed: true, Detail: fmt.Sprintf("s3://%s reachable", bucket)}
}

func summarizeBucketError(bucket string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("s3://%s check timed out (endpoint unresponsive)", bucket)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("s3://%s check timed out (endpoint unreachable)", bucket)
	}
	return fmt.Sprintf("s3://%s (error: %v)", bucket, err)
}
