package gtvoc

// SageMaker Ground Truth bounding box manifest parsing.

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log"

	"github.com/pkg/errors"
)

const (
	gtSourceRefKey   = "source-ref"
	gtMetadataSuffix = "-metadata"

	maxManifestLineSize = 16 << 20
)

// GTAnnotation is a single bounding box in a Ground Truth job result.
type GTAnnotation struct {
	ClassID *json.Number `json:"class_id"`
	Left    *float64     `json:"left"`
	Top     *float64     `json:"top"`
	Width   *float64     `json:"width"`
	Height  *float64     `json:"height"`
}

// GTImageSize is the size of the labeled image.
type GTImageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Depth  int `json:"depth"`
}

// GTJobResult is the value stored under the job name key of a manifest record.
type GTJobResult struct {
	Annotations []GTAnnotation `json:"annotations"`
	ImageSize   []GTImageSize  `json:"image_size"`
}

// GTJobMetadata is the value stored under the "<job>-metadata" key of a manifest record.
type GTJobMetadata struct {
	ClassMap map[string]string `json:"class-map"`
}

// FromGroundTruth reads the manifest at path, which may be an s3:// URI, and flattens the results
// of job jobName into one row per bounding box.
func FromGroundTruth(path, jobName string) (rows Rows, err error) {
	r, err := OpenResource(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(r, &err)

	rows, err = ParseGroundTruth(r, jobName)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to parse manifest %q", path)
	}
	return rows, nil
}

// ParseGroundTruth reads a line-delimited manifest from r and returns one row per bounding box of
// job jobName. Records without a jobName key are skipped. Any malformed record aborts the parse.
func ParseGroundTruth(r io.Reader, jobName string) (Rows, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxManifestLineSize)

	var rows Rows
	lineNum, numRecords := 0, 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		recordRows, ok, err := parseGroundTruthRecord(line, jobName)
		if err != nil {
			return nil, errors.WithMessagef(err, "line %d", lineNum)
		}
		if !ok {
			continue
		}

		numRecords++
		rows = append(rows, recordRows...)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read the manifest")
	}

	log.Printf("Parsed %d bounding boxes from %d records for job %q", len(rows), numRecords, jobName)
	return rows, nil
}

// parseGroundTruthRecord flattens a single manifest line. It returns ok == false if the record
// carries no result for jobName.
func parseGroundTruthRecord(line []byte, jobName string) (rows Rows, ok bool, err error) {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(line, &record); err != nil {
		return nil, false, errors.Wrap(err, "invalid JSON")
	}
	if record == nil {
		return nil, false, errors.Wrap(ErrSchemaViolation, "record is not a JSON object")
	}

	jobRaw, ok := record[jobName]
	if !ok {
		return nil, false, nil
	}

	var job GTJobResult
	if err := json.Unmarshal(jobRaw, &job); err != nil {
		return nil, false, errors.Wrapf(ErrSchemaViolation, "%q: %v", jobName, err)
	}

	metadataKey := jobName + gtMetadataSuffix
	metadataRaw, ok := record[metadataKey]
	if !ok {
		return nil, false, errors.Wrapf(ErrSchemaViolation, "missing %q", metadataKey)
	}
	var metadata GTJobMetadata
	if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
		return nil, false, errors.Wrapf(ErrSchemaViolation, "%q: %v", metadataKey, err)
	}
	if metadata.ClassMap == nil {
		return nil, false, errors.Wrapf(ErrSchemaViolation, "missing %q.class-map", metadataKey)
	}

	var sourceRef string
	if raw, ok := record[gtSourceRefKey]; !ok {
		return nil, false, errors.Wrapf(ErrSchemaViolation, "missing %q", gtSourceRefKey)
	} else if err := json.Unmarshal(raw, &sourceRef); err != nil {
		return nil, false, errors.Wrapf(ErrSchemaViolation, "%q: %v", gtSourceRefKey, err)
	}

	// Multi-frame images are not supported.
	if len(job.ImageSize) != 1 {
		return nil, false, errors.Wrapf(ErrSchemaViolation,
			"%q.image_size has %d entries, expected 1", jobName, len(job.ImageSize))
	}
	if job.Annotations == nil {
		return nil, false, errors.Wrapf(ErrSchemaViolation, "missing %q.annotations", jobName)
	}

	size := job.ImageSize[0]
	imageFile := baseName(sourceRef)

	rows = make(Rows, 0, len(job.Annotations))
	for i, a := range job.Annotations {
		if a.ClassID == nil || a.Left == nil || a.Top == nil || a.Width == nil || a.Height == nil {
			return nil, false, errors.Wrapf(ErrSchemaViolation,
				"annotation %d of %q is missing a required field", i, imageFile)
		}

		category, found := metadata.ClassMap[a.ClassID.String()]
		if !found {
			return nil, false, errors.Wrapf(ErrUnknownCategory,
				"class id %s of %q is not in the class map", a.ClassID.String(), imageFile)
		}

		rows = append(rows, Row{
			ImageFile:   imageFile,
			Category:    category,
			Left:        *a.Left,
			Top:         *a.Top,
			Width:       *a.Width,
			Height:      *a.Height,
			ImageWidth:  size.Width,
			ImageHeight: size.Height,
			ImageDepth:  size.Depth,
		})
	}

	return rows, true, nil
}
