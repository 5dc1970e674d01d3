package gtvoc

// Labeling run configuration.

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Config identifies a Ground Truth labeling run and where its data is stored.
type Config struct {
	S3Bucket string `json:"s3_bucket"`
	JobID    string `json:"job_id"`
	JobName  string `json:"ground_truth_job_name"`
	PhotoDir string `json:"photo_dir"`
}

// LoadConfig reads the JSON run configuration at path.
func LoadConfig(path string) (Config, error) {
	enc, err := readResource(path)
	if err != nil {
		return Config{}, err
	}

	var c Config
	if err := json.Unmarshal(enc, &c); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse the configuration %q", path)
	}
	if err := c.Validate(); err != nil {
		return Config{}, errors.WithMessagef(err, "invalid configuration %q", path)
	}

	return c, nil
}

// Validate checks that all fields are set.
func (c Config) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"s3_bucket", c.S3Bucket},
		{"job_id", c.JobID},
		{"ground_truth_job_name", c.JobName},
		{"photo_dir", c.PhotoDir},
	} {
		if f.value == "" {
			return fmt.Errorf("missing %q", f.name)
		}
	}
	return nil
}

// jobPrefix is the location of the labeling job output.
func (c Config) jobPrefix() string {
	return fmt.Sprintf("s3://%s/%s/ground_truth_annots/%s", c.S3Bucket, c.JobID, c.JobName)
}

// ManifestPath is the URI of the job's output manifest.
func (c Config) ManifestPath() string {
	return c.jobPrefix() + "/manifests/output/output.manifest"
}

// CategoriesPath is the URI of the labeling tool's category file.
func (c Config) CategoriesPath() string {
	return c.jobPrefix() + "/annotation-tool/data.json"
}

// ImagesPath is the URI prefix of the labeled images, with a trailing slash.
func (c Config) ImagesPath() string {
	return fmt.Sprintf("s3://%s/%s/%s/", c.S3Bucket, c.JobID, c.PhotoDir)
}
