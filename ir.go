package gtvoc

// The intermediate annotation representation: one row per bounding box.

import (
	"fmt"
	"log"
	"strings"
)

// Row is one bounding box of one image, flattened from a labeling manifest.
type Row struct {
	ImageFile string // Last path segment of the source image reference.
	Category  string // Class name resolved through the record's class map.

	// Box in labeling-tool convention, offsets from the top-left corner of the image.
	Left, Top, Width, Height float64

	ImageWidth  int
	ImageHeight int
	ImageDepth  int
}

// Box returns the row's bounding box in corner form.
func (r Row) Box() Box {
	return ConvertBox(r.Left, r.Top, r.Width, r.Height)
}

// Box is an axis-aligned rectangle given by its top-left and bottom-right corners. Y grows
// downwards, so YMin is the top edge.
type Box struct {
	XMin, YMin, XMax, YMax float64
}

// Width is the box width.
func (b Box) Width() float64 {
	return b.XMax - b.XMin
}

// Height is the box height.
func (b Box) Height() float64 {
	return b.YMax - b.YMin
}

// ConvertBox converts a left/top/width/height box into corner form.
func ConvertBox(left, top, width, height float64) Box {
	return Box{
		XMin: left,
		YMin: top,
		XMax: left + width,
		YMax: top + height,
	}
}

// Rows is the flattened annotation data of a labeling job.
type Rows []Row

// ImageRows holds the rows of a single image, together with their indices in the source Rows.
type ImageRows struct {
	ImageFile string
	Indices   []int
	Rows      Rows
}

// ByImage groups the rows by image file, in order of first appearance.
func (data Rows) ByImage() []ImageRows {
	groups := make([]ImageRows, 0, len(data))
	pos := make(map[string]int, len(data))
	for i, r := range data {
		j, ok := pos[r.ImageFile]
		if !ok {
			j = len(groups)
			pos[r.ImageFile] = j
			groups = append(groups, ImageRows{ImageFile: r.ImageFile})
		}
		groups[j].Indices = append(groups[j].Indices, i)
		groups[j].Rows = append(groups[j].Rows, r)
	}
	return groups
}

// MapLabels replaces category (sub-)strings with substitution values, as specified in mappings.
//
// The format of mappings is old=new.
func (data Rows) MapLabels(mappings []string) error {
	if len(mappings) == 0 {
		return nil
	}

	replacements := make([]struct{ old, new string }, len(mappings))
	for i, v := range mappings {
		a := strings.Split(v, "=")
		if len(a) != 2 || a[0] == "" {
			return fmt.Errorf("invalid mapping: %v", v)
		}

		replacements[i].old = a[0]
		replacements[i].new = a[1]
	}

	// Apply the replacements, in order, to all categories.
	count := 0
	for i := range data {
		r := &data[i]

		old := r.Category
		for _, rep := range replacements {
			r.Category = strings.Replace(r.Category, rep.old, rep.new, -1)
		}

		if r.Category != old {
			count++
		}
	}

	log.Printf("The label mappings changed %d labels", count)
	return nil
}

// Filter returns the rows whose category is one of labels and whose box is at least minWidth by
// minHeight. An empty labels list keeps all categories. The input is not modified.
func (data Rows) Filter(labels []string, minWidth, minHeight float64) Rows {
	keep := make(map[string]bool, len(labels))
	for _, l := range labels {
		keep[l] = true
	}

	out := make(Rows, 0, len(data))
	for _, r := range data {
		if len(keep) > 0 && !keep[r.Category] {
			continue
		}
		if r.Width < minWidth || r.Height < minHeight {
			continue
		}
		out = append(out, r)
	}

	log.Printf("Filtered out %d labels", len(data)-len(out))
	return out
}
