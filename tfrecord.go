package gtvoc

// TFRecord object detection specific functionality.

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// TFRecordOptions controls the TFRecord export.
type TFRecordOptions struct {
	// ImageDir is the local directory or URI prefix of the images. If set, the encoded image bytes
	// are embedded in each example.
	ImageDir string
	// NumShards is the number of record files to write. Values < 1 mean one file.
	NumShards int
}

// tfImageFormat returns the image/format feature value for an image file name.
func tfImageFormat(imageFile string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(imageFile), "."))
	if ext == "jpg" {
		return "jpeg"
	}
	return ext
}

// toTFFeatureMap converts the rows of a single image to the object detection feature map. Class
// ids are 1-based positions in the category list.
func toTFFeatureMap(g ImageRows, classIDs map[string]int64, imageDir string) (TFFeatureMap, error) {
	first := g.Rows[0]
	if first.ImageWidth <= 0 || first.ImageHeight <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d for %q",
			first.ImageWidth, first.ImageHeight, g.ImageFile)
	}

	f := make(TFFeatureMap, 16)
	f["image/height"] = first.ImageHeight
	f["image/width"] = first.ImageWidth
	f["image/filename"] = g.ImageFile
	f["image/source_id"] = g.ImageFile
	if imageDir != "" {
		imgData, err := readResource(joinLocation(imageDir, g.ImageFile))
		if err != nil {
			return nil, fmt.Errorf("failed to read the image: %v", err)
		}
		f["image/encoded"] = imgData
		f["image/format"] = tfImageFormat(g.ImageFile)
	}

	// Prepare the per label data.
	numLabels := len(g.Rows)
	xmins := make([]float32, numLabels)
	ymins := make([]float32, numLabels)
	xmaxs := make([]float32, numLabels)
	ymaxs := make([]float32, numLabels)
	classes := make([]string, numLabels)
	labels := make([]int64, numLabels)
	width, height := float64(first.ImageWidth), float64(first.ImageHeight)
	for i, r := range g.Rows {
		id, ok := classIDs[r.Category]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownCategory, "%q of %q is not in the category list",
				r.Category, g.ImageFile)
		}

		b := r.Box()
		xmins[i] = float32(b.XMin / width)
		ymins[i] = float32(b.YMin / height)
		xmaxs[i] = float32(b.XMax / width)
		ymaxs[i] = float32(b.YMax / height)
		classes[i] = r.Category
		labels[i] = id
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = labels

	return f, nil
}

// newTFExample builds the example, turning conversion panics into errors.
func newTFExample(f TFFeatureMap) (e *tensorflow.Example, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", r)
		}
	}()
	return example.New(f), nil
}

// WriteTFRecord writes one example per image to one or more TFRecord files stored under
// recordFilePath (with -xxxxx-of-yyyyy suffixes added when opts.NumShards > 1), and the label map
// for categories to labelMapPath.
func WriteTFRecord(recordFilePath, labelMapPath string, rows Rows, categories []string,
		opts TFRecordOptions) error {

	numShards := opts.NumShards
	if numShards <= 0 {
		numShards = 1
	}

	classIDs := make(map[string]int64, len(categories))
	for i, c := range categories {
		classIDs[c] = int64(i + 1)
	}

	groups := rows.ByImage()
	shardSize := int(math.Ceil(float64(len(groups)) / float64(numShards)))
	if shardSize == 0 {
		shardSize = 1
	}

	var shardFile *os.File
	closeShard := func() error {
		if shardFile == nil {
			return nil
		}
		err := shardFile.Close()
		shardFile = nil
		return err
	}
	defer closeShard()

	shardIdx := -1
	for i, g := range groups {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++
			if err := closeShard(); err != nil {
				return err
			}

			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmt.Sprintf("-%05d-of-%05d", shardIdx, numShards)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		features, err := toTFFeatureMap(g, classIDs, opts.ImageDir)
		if err != nil {
			return errors.WithMessagef(err, "failed to convert %q", g.ImageFile)
		}
		tfExample, err := newTFExample(features)
		if err != nil {
			return err
		}
		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			return fmt.Errorf("failed to write example for %q: %v", g.ImageFile, err)
		}
	}
	if err := closeShard(); err != nil {
		return err
	}

	log.Printf("Wrote %d TFRecord examples to %s", len(groups), recordFilePath)
	return saveTFRecordLabelMap(labelMapPath, categories)
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes categories to path as a StringIntLabelMap in protobuf text format,
// with ids assigned from 1 in list order.
func saveTFRecordLabelMap(path string, categories []string) error {
	var buf bytes.Buffer
	for i, c := range categories {
		fmt.Fprintf(&buf, "item {\n  name: %s\n  id: %d\n}\n", strconv.Quote(c), i+1)
	}

	if err := writeFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write the label map: %v", err)
	}
	return nil
}
