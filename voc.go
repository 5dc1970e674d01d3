package gtvoc

// PASCAL VOC specific functionality.

import (
	"encoding/xml"
	"fmt"
	"log"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
)

// Fixed VOC values that the labeling data does not provide.
const (
	VOCDefaultDatabase = "Unknown"
	VOCDefaultPose     = "Unspecified"
	VOCDefaultDepth    = 3
)

// VOCCoord is a bounding box coordinate. It is written without trailing zeros, so integral
// values appear as integers.
type VOCCoord float64

// MarshalText implements encoding.TextMarshaler.
func (c VOCCoord) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(c), 'f', -1, 64)), nil
}

// VOCBndBox is the bounding box of a VOC object.
type VOCBndBox struct {
	XMin VOCCoord `xml:"xmin"`
	YMin VOCCoord `xml:"ymin"`
	XMax VOCCoord `xml:"xmax"`
	YMax VOCCoord `xml:"ymax"`
}

// VOCObject is a single object annotation within a VOC file.
type VOCObject struct {
	Name      string    `xml:"name"`
	Pose      string    `xml:"pose"`
	Truncated int       `xml:"truncated"`
	Difficult int       `xml:"difficult"`
	BndBox    VOCBndBox `xml:"bndbox"`
}

// VOCSize is the image size.
type VOCSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

// VOCSource names the dataset an image belongs to.
type VOCSource struct {
	Database string `xml:"database"`
}

// VOCAnnotation is the content of a VOC annotation file.
type VOCAnnotation struct {
	XMLName   xml.Name    `xml:"annotation"`
	Folder    string      `xml:"folder"`
	Filename  string      `xml:"filename"`
	Path      string      `xml:"path"`
	Source    VOCSource   `xml:"source"`
	Size      VOCSize     `xml:"size"`
	Segmented int         `xml:"segmented"`
	Objects   []VOCObject `xml:"object"`
}

// VOCFile is an annotation together with the name of the file it is written to.
type VOCFile struct {
	Annotation VOCAnnotation
	FileName   string
}

// VOCOptions controls the conversion to VOC annotations.
type VOCOptions struct {
	// GroupByImage writes one file per image that lists all its objects. Otherwise one file is
	// written per bounding box.
	GroupByImage bool
	// ImageDir is the directory or URI prefix of the images, used for the path and folder values.
	ImageDir string
}

// RenderFunc serialises an annotation.
type RenderFunc func(a VOCAnnotation) ([]byte, error)

// RenderVOCXML is the default RenderFunc. It writes the annotation as indented XML.
func RenderVOCXML(a VOCAnnotation) ([]byte, error) {
	enc, err := xml.MarshalIndent(a, "", "    ")
	if err != nil {
		return nil, err
	}
	return append(enc, '\n'), nil
}

// newVOCAnnotation creates the per image part of an annotation from a row.
func newVOCAnnotation(r Row, imageDir string) VOCAnnotation {
	depth := r.ImageDepth
	if depth == 0 {
		depth = VOCDefaultDepth
	}

	path := joinLocation(imageDir, r.ImageFile)
	return VOCAnnotation{
		Folder:   folderName(path),
		Filename: r.ImageFile,
		Path:     path,
		Source:   VOCSource{Database: VOCDefaultDatabase},
		Size: VOCSize{
			Width:  r.ImageWidth,
			Height: r.ImageHeight,
			Depth:  depth,
		},
	}
}

// newVOCObject converts the bounding box of a row.
func newVOCObject(r Row) VOCObject {
	b := r.Box()
	return VOCObject{
		Name: r.Category,
		Pose: VOCDefaultPose,
		BndBox: VOCBndBox{
			XMin: VOCCoord(b.XMin),
			YMin: VOCCoord(b.YMin),
			XMax: VOCCoord(b.XMax),
			YMax: VOCCoord(b.YMax),
		},
	}
}

// ToVOC converts rows to VOC annotation files.
//
// By default every row becomes a file of its own, named <category>_<row index>_<image file>.xml.
// With opts.GroupByImage, the rows of each image are collected into <image name>.xml.
func ToVOC(rows Rows, opts VOCOptions) []VOCFile {
	if opts.GroupByImage {
		groups := rows.ByImage()
		files := make([]VOCFile, 0, len(groups))
		for _, g := range groups {
			a := newVOCAnnotation(g.Rows[0], opts.ImageDir)
			a.Objects = make([]VOCObject, len(g.Rows))
			for i, r := range g.Rows {
				a.Objects[i] = newVOCObject(r)
			}
			files = append(files, VOCFile{Annotation: a, FileName: stem(g.ImageFile) + ".xml"})
		}
		return files
	}

	files := make([]VOCFile, len(rows))
	for i, r := range rows {
		a := newVOCAnnotation(r, opts.ImageDir)
		a.Objects = []VOCObject{newVOCObject(r)}
		files[i] = VOCFile{
			Annotation: a,
			FileName:   fmt.Sprintf("%s_%d_%s.xml", r.Category, i, r.ImageFile),
		}
	}
	return files
}

// WriteVOC renders each file with render, RenderVOCXML if nil, and writes it to dirPath.
func WriteVOC(dirPath string, files []VOCFile, render RenderFunc) error {
	if render == nil {
		render = RenderVOCXML
	}
	if err := ensureDir(dirPath); err != nil {
		return err
	}

	for _, f := range files {
		if !isPlainFileName(f.FileName) {
			return errors.Wrapf(ErrSchemaViolation, "%q is not a valid annotation file name", f.FileName)
		}
		enc, err := render(f.Annotation)
		if err != nil {
			return fmt.Errorf("failed to render %q: %v", f.FileName, err)
		}
		if err := writeFile(filepath.Join(dirPath, f.FileName), enc); err != nil {
			return err
		}
	}

	log.Printf("Wrote %d VOC annotation files to %s", len(files), dirPath)
	return nil
}
