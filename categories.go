package gtvoc

// Category list of a labeling job.

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// LoadCategories reads the ordered label names from the category resource at path, which may be
// an s3:// URI.
func LoadCategories(path string) (categories []string, err error) {
	r, err := OpenResource(path)
	if err != nil {
		return nil, err
	}
	defer closeWithErrCheck(r, &err)

	categories, err = ParseCategories(r)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to read categories from %q", path)
	}
	return categories, nil
}

// ParseCategories decodes a JSON object of the form {"labels": [{"label": "name", ...}, ...]} from
// r and returns the label names in their original order.
func ParseCategories(r io.Reader) ([]string, error) {
	var doc map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrapf(ErrMalformedCategoryFile, "invalid JSON: %v", err)
	}

	raw, ok := doc["labels"]
	if !ok {
		return nil, errors.Wrap(ErrMalformedCategoryFile, `missing "labels"`)
	}

	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		return nil, errors.Wrap(ErrMalformedCategoryFile, `"labels" is not a list of objects`)
	}

	categories := make([]string, len(entries))
	for i, e := range entries {
		var label string
		if err := json.Unmarshal(e["label"], &label); err != nil {
			return nil, errors.Wrapf(ErrMalformedCategoryFile, "entry %d has no string label", i)
		}
		categories[i] = label
	}

	return categories, nil
}
