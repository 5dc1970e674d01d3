package gtvoc

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTFImageFormat(t *testing.T) {
	assert.Equal(t, "jpeg", tfImageFormat("a.JPG"))
	assert.Equal(t, "jpeg", tfImageFormat("a.jpeg"))
	assert.Equal(t, "png", tfImageFormat("dir/a.png"))
}

func TestToTFFeatureMap(t *testing.T) {
	g := vocTestRows.ByImage()[0]
	f, err := toTFFeatureMap(g, map[string]int64{"cat": 1, "dog": 2}, "")
	require.NoError(t, err)

	assert.Equal(t, 80, f["image/height"])
	assert.Equal(t, 100, f["image/width"])
	assert.Equal(t, "img1.jpg", f["image/filename"])
	assert.NotContains(t, f, "image/encoded")
	assert.Equal(t, []float32{0.1, 0.01}, f["image/object/bbox/xmin"])
	assert.Equal(t, []float32{0.0625, 0.025}, f["image/object/bbox/ymin"])
	assert.Equal(t, []float32{0.3, 0.04}, f["image/object/bbox/xmax"])
	assert.Equal(t, []float32{0.25, 0.075}, f["image/object/bbox/ymax"])
	assert.Equal(t, []string{"cat", "dog"}, f["image/object/class/text"])
	assert.Equal(t, []int64{1, 2}, f["image/object/class/label"])

	_, err = toTFFeatureMap(g, map[string]int64{"cat": 1}, "")
	assert.True(t, errors.Is(err, ErrUnknownCategory), "unexpected error: %v", err)

	_, err = toTFFeatureMap(ImageRows{ImageFile: "x.jpg", Rows: Rows{{ImageFile: "x.jpg"}}}, nil, "")
	assert.Error(t, err)
}

func TestWriteTFRecord(t *testing.T) {
	dir, err := ioutil.TempDir("", "gtvoc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	imageDir := filepath.Join(dir, "photos")
	require.NoError(t, os.Mkdir(imageDir, 0755))
	img1 := []byte("\xff\xd8fake-jpeg-one")
	img2 := []byte("\xff\xd8fake-jpeg-two")
	require.NoError(t, ioutil.WriteFile(filepath.Join(imageDir, "img1.jpg"), img1, 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(imageDir, "img2.jpg"), img2, 0644))

	recordPath := filepath.Join(dir, "train.record")
	labelMapPath := filepath.Join(dir, "label_map.pbtxt")
	err = WriteTFRecord(recordPath, labelMapPath, vocTestRows, []string{"cat", "dog"},
		TFRecordOptions{ImageDir: imageDir})
	require.NoError(t, err)

	record, err := ioutil.ReadFile(recordPath)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(record, img1))
	assert.True(t, bytes.Contains(record, img2))
	assert.True(t, bytes.Contains(record, []byte("image/object/bbox/xmin")))

	labelMap, err := ioutil.ReadFile(labelMapPath)
	require.NoError(t, err)
	assert.Equal(t, "item {\n  name: \"cat\"\n  id: 1\n}\nitem {\n  name: \"dog\"\n  id: 2\n}\n",
		string(labelMap))
}

func TestWriteTFRecordShards(t *testing.T) {
	dir, err := ioutil.TempDir("", "gtvoc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	recordPath := filepath.Join(dir, "train.record")
	err = WriteTFRecord(recordPath, filepath.Join(dir, "label_map.pbtxt"), vocTestRows,
		[]string{"cat", "dog"}, TFRecordOptions{NumShards: 2})
	require.NoError(t, err)

	for _, suffix := range []string{"-00000-of-00002", "-00001-of-00002"} {
		fi, err := os.Stat(recordPath + suffix)
		require.NoError(t, err)
		assert.True(t, fi.Size() > 0)
	}
	_, err = os.Stat(recordPath)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteTFRecordUnknownCategory(t *testing.T) {
	dir, err := ioutil.TempDir("", "gtvoc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	err = WriteTFRecord(filepath.Join(dir, "r"), filepath.Join(dir, "m"), vocTestRows,
		[]string{"cat"}, TFRecordOptions{})
	assert.True(t, errors.Is(err, ErrUnknownCategory), "unexpected error: %v", err)
}
