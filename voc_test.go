package gtvoc

import (
	"encoding/xml"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vocTestRows = Rows{
	{ImageFile: "img1.jpg", Category: "cat", Left: 10, Top: 5, Width: 20, Height: 15,
		ImageWidth: 100, ImageHeight: 80, ImageDepth: 3},
	{ImageFile: "img2.jpg", Category: "dog", Left: 0, Top: 0, Width: 1.5, Height: 2,
		ImageWidth: 50, ImageHeight: 40},
	{ImageFile: "img1.jpg", Category: "dog", Left: 1, Top: 2, Width: 3, Height: 4,
		ImageWidth: 100, ImageHeight: 80, ImageDepth: 3},
}

func TestToVOCPerBox(t *testing.T) {
	files := ToVOC(vocTestRows, VOCOptions{ImageDir: "s3://bucket/job/photos/"})
	require.Len(t, files, 3)

	assert.Equal(t, "cat_0_img1.jpg.xml", files[0].FileName)
	assert.Equal(t, "dog_1_img2.jpg.xml", files[1].FileName)
	assert.Equal(t, "dog_2_img1.jpg.xml", files[2].FileName)

	a := files[0].Annotation
	assert.Equal(t, "photos", a.Folder)
	assert.Equal(t, "img1.jpg", a.Filename)
	assert.Equal(t, "s3://bucket/job/photos/img1.jpg", a.Path)
	assert.Equal(t, VOCSource{Database: "Unknown"}, a.Source)
	assert.Equal(t, VOCSize{Width: 100, Height: 80, Depth: 3}, a.Size)
	assert.Equal(t, 0, a.Segmented)
	require.Len(t, a.Objects, 1)
	assert.Equal(t, VOCObject{
		Name:   "cat",
		Pose:   "Unspecified",
		BndBox: VOCBndBox{XMin: 10, YMin: 5, XMax: 30, YMax: 20},
	}, a.Objects[0])

	// A missing depth falls back to three channels.
	assert.Equal(t, 3, files[1].Annotation.Size.Depth)
	require.Len(t, files[2].Annotation.Objects, 1)
	assert.Equal(t, "dog", files[2].Annotation.Objects[0].Name)
}

func TestToVOCGroupByImage(t *testing.T) {
	files := ToVOC(vocTestRows, VOCOptions{GroupByImage: true, ImageDir: "/data/photos"})
	require.Len(t, files, 2)

	assert.Equal(t, "img1.xml", files[0].FileName)
	assert.Equal(t, "/data/photos/img1.jpg", files[0].Annotation.Path)
	assert.Equal(t, "photos", files[0].Annotation.Folder)
	require.Len(t, files[0].Annotation.Objects, 2)
	assert.Equal(t, "cat", files[0].Annotation.Objects[0].Name)
	assert.Equal(t, "dog", files[0].Annotation.Objects[1].Name)
	assert.Equal(t, VOCBndBox{XMin: 1, YMin: 2, XMax: 4, YMax: 6}, files[0].Annotation.Objects[1].BndBox)

	assert.Equal(t, "img2.xml", files[1].FileName)
	assert.Len(t, files[1].Annotation.Objects, 1)
}

func TestRenderVOCXML(t *testing.T) {
	files := ToVOC(vocTestRows[:2], VOCOptions{ImageDir: "photos"})

	enc, err := RenderVOCXML(files[0].Annotation)
	require.NoError(t, err)
	s := string(enc)
	for _, tag := range []string{
		"<annotation>", "<folder>photos</folder>", "<filename>img1.jpg</filename>",
		"<path>photos/img1.jpg</path>", "<database>Unknown</database>", "<width>100</width>",
		"<height>80</height>", "<depth>3</depth>", "<segmented>0</segmented>", "<name>cat</name>",
		"<pose>Unspecified</pose>", "<truncated>0</truncated>", "<difficult>0</difficult>",
		"<xmin>10</xmin>", "<ymin>5</ymin>", "<xmax>30</xmax>", "<ymax>20</ymax>",
	} {
		assert.Contains(t, s, tag)
	}

	enc, err = RenderVOCXML(files[1].Annotation)
	require.NoError(t, err)
	assert.Contains(t, string(enc), "<xmax>1.5</xmax>")

	// The output reads back into the same structure.
	var a VOCAnnotation
	require.NoError(t, xml.Unmarshal(enc, &a))
	assert.Equal(t, files[1].Annotation.Objects, a.Objects)
	assert.Equal(t, files[1].Annotation.Size, a.Size)
}

func TestWriteVOC(t *testing.T) {
	dir, err := ioutil.TempDir("", "gtvoc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	outDir := filepath.Join(dir, "Annotations")
	files := ToVOC(vocTestRows, VOCOptions{})
	require.NoError(t, WriteVOC(outDir, files, nil))

	infos, err := ioutil.ReadDir(outDir)
	require.NoError(t, err)
	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	assert.Equal(t, []string{"cat_0_img1.jpg.xml", "dog_1_img2.jpg.xml", "dog_2_img1.jpg.xml"}, names)

	// Rewriting yields identical bytes.
	first, err := ioutil.ReadFile(filepath.Join(outDir, "cat_0_img1.jpg.xml"))
	require.NoError(t, err)
	require.NoError(t, WriteVOC(outDir, files, nil))
	second, err := ioutil.ReadFile(filepath.Join(outDir, "cat_0_img1.jpg.xml"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestWriteVOCRejectsPathsInNames(t *testing.T) {
	dir, err := ioutil.TempDir("", "gtvoc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	outDir := filepath.Join(dir, "Annotations")
	for _, category := range []string{"cats/dogs", "../escape", `a\b`} {
		rows := Rows{{ImageFile: "img1.jpg", Category: category, ImageWidth: 1, ImageHeight: 1}}
		err := WriteVOC(outDir, ToVOC(rows, VOCOptions{}), nil)
		assert.True(t, errors.Is(err, ErrSchemaViolation), "%s: unexpected error: %v", category, err)
	}

	_, err = os.Stat(filepath.Join(dir, "escape_0_img1.jpg.xml"))
	assert.True(t, os.IsNotExist(err))
}

func TestFolderNameRelative(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	files := ToVOC(vocTestRows[:1], VOCOptions{})
	assert.Equal(t, filepath.Base(wd), files[0].Annotation.Folder)
	assert.Equal(t, "img1.jpg", files[0].Annotation.Path)

	assert.Equal(t, "photos", folderName("s3://bucket/job/photos/img1.jpg"))
	assert.Equal(t, "photos", folderName("/data/photos/img1.jpg"))
}

func TestWriteVOCCustomRenderer(t *testing.T) {
	dir, err := ioutil.TempDir("", "gtvoc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var rendered []string
	render := func(a VOCAnnotation) ([]byte, error) {
		rendered = append(rendered, a.Filename)
		return []byte(a.Objects[0].Name), nil
	}

	files := ToVOC(vocTestRows[:1], VOCOptions{})
	require.NoError(t, WriteVOC(dir, files, render))
	assert.Equal(t, []string{"img1.jpg"}, rendered)

	content, err := ioutil.ReadFile(filepath.Join(dir, files[0].FileName))
	require.NoError(t, err)
	assert.Equal(t, "cat", string(content))

	failing := func(VOCAnnotation) ([]byte, error) { return nil, errors.New("boom") }
	assert.Error(t, WriteVOC(dir, files, failing))
}
