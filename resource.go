package gtvoc

// Access to local and S3 hosted resources.

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

const defaultRegion = "us-east-1"

var (
	s3Client   s3iface.S3API // Lazily created unless set with SetS3Client.
	s3ClientMu sync.Mutex
)

// SetS3Client replaces the client used for s3:// resources. Passing nil restores the default
// client, which is created from the shared AWS configuration on first use.
func SetS3Client(c s3iface.S3API) {
	s3ClientMu.Lock()
	defer s3ClientMu.Unlock()
	s3Client = c
}

// getS3Client returns the active S3 client, creating one for AWS_REGION (or us-east-1) if needed.
func getS3Client() (s3iface.S3API, error) {
	s3ClientMu.Lock()
	defer s3ClientMu.Unlock()

	if s3Client != nil {
		return s3Client, nil
	}

	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = defaultRegion
	}
	sess, err := session.NewSession(aws.NewConfig().WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create an AWS session")
	}
	s3Client = s3.New(sess)

	return s3Client, nil
}

// IsS3URI reports whether path names an S3 object.
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// parseS3URI splits an s3://bucket/key URI into bucket and key. The key is used exactly as
// written, without URL decoding.
func parseS3URI(uri string) (bucket, key string, err error) {
	if !IsS3URI(uri) {
		return "", "", errors.Errorf("invalid S3 URI %q", uri)
	}

	rest := strings.TrimPrefix(uri, "s3://")
	i := strings.Index(rest, "/")
	if i < 0 {
		return "", "", errors.Errorf("missing object key in %q", uri)
	}
	bucket, key = rest[:i], rest[i+1:]
	if bucket == "" {
		return "", "", errors.Errorf("missing bucket in %q", uri)
	}
	if key == "" {
		return "", "", errors.Errorf("missing object key in %q", uri)
	}

	return bucket, key, nil
}

// OpenResource opens a local or remote path for reading. Paths of the form s3://bucket/key are
// read from S3, anything else from the local file system.
func OpenResource(path string) (io.ReadCloser, error) {
	if !IsS3URI(path) {
		return os.Open(path)
	}

	bucket, key, err := parseS3URI(path)
	if err != nil {
		return nil, err
	}
	client, err := getS3Client()
	if err != nil {
		return nil, err
	}

	out, err := client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %q", path)
	}

	return out.Body, nil
}
