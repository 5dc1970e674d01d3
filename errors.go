package gtvoc

import "github.com/pkg/errors"

// Failure classes. Errors returned by this package wrap one of these when the input data, rather
// than I/O, is at fault; test for them with errors.Is.
var (
	// ErrSchemaViolation marks a manifest record that lacks a required key or has an image_size
	// list that does not hold exactly one entry.
	ErrSchemaViolation = errors.New("manifest schema violation")

	// ErrUnknownCategory marks a class id or label that has no name in the relevant class map or
	// category list.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrMalformedCategoryFile marks a category resource without a usable "labels" list.
	ErrMalformedCategoryFile = errors.New("malformed category file")
)
