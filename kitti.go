package gtvoc

// KITTI specific functionality.

import (
	"bytes"
	"fmt"
	"log"
	"path/filepath"
)

// KITTIAnnotation is a single annotation within a KITTI file.
type KITTIAnnotation struct {
	Coords [4]float64 // x1, y1, x2, y2
	Label  string
}

// KITTIAnnotatedFile defines the KITTI annotation structure for a single image.
type KITTIAnnotatedFile struct {
	Annotations []KITTIAnnotation
	ImageFile   string
}

// ToKitti converts rows to KITTI annotations, one KITTIAnnotatedFile per image.
func ToKitti(rows Rows) []KITTIAnnotatedFile {
	groups := rows.ByImage()
	kittiData := make([]KITTIAnnotatedFile, 0, len(groups))
	for _, g := range groups {
		f := KITTIAnnotatedFile{
			Annotations: make([]KITTIAnnotation, len(g.Rows)),
			ImageFile:   g.ImageFile,
		}
		for i, r := range g.Rows {
			b := r.Box()
			f.Annotations[i] = KITTIAnnotation{
				Coords: [4]float64{b.XMin, b.YMin, b.XMax, b.YMax},
				Label:  r.Category,
			}
		}
		kittiData = append(kittiData, f)
	}

	return kittiData
}

// WriteKitti writes data to dirPath, one <image name>.txt file per element.
func WriteKitti(dirPath string, data []KITTIAnnotatedFile) error {
	if err := ensureDir(dirPath); err != nil {
		return err
	}

	for _, fileData := range data {
		var buf bytes.Buffer
		for _, a := range fileData.Annotations {
			fmt.Fprintf(&buf, "%s 0.0 0 0.0 %.2f %.2f %.2f %.2f 0.0 0.0 0.0 0.0 0.0 0.0 0.0\n",
				a.Label, a.Coords[0], a.Coords[1], a.Coords[2], a.Coords[3])
		}

		filePath := filepath.Join(dirPath, stem(fileData.ImageFile)+".txt")
		if err := writeFile(filePath, buf.Bytes()); err != nil {
			return err
		}
	}

	log.Printf("Wrote KITTI labels for %d images to %s", len(data), dirPath)
	return nil
}
