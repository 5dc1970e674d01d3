// Converts SageMaker Ground Truth bounding box manifests to PASCAL VOC annotations and writes per
// category train/validation image lists. KITTI and TFRecord outputs are available as well.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/sensorable/gtvoc"
)

var (
	configPath     string // The run configuration file.
	manifestPath   string // The Ground Truth output manifest.
	categoriesPath string // The labeling tool category file.
	jobName        string // The Ground Truth job name.
	imageDirPath   string // The directory or URI prefix of the labeled images.

	annotationsOutDirPath    string // The output directory for VOC annotations.
	splitsOutDirPath         string // The output directory for train/validation lists.
	kittiOutDirPath          string // The optional KITTI output directory.
	tfRecordOutPath          string // The optional TFRecord output file.
	tfRecordLabelMapFilePath string // The TFRecord label map file.
	tfRecordEmbedImages      bool   // Embed the encoded images in TFRecord examples.
	numShardFiles            int    // The number of TFRecord shard files to create.

	groupByImage bool    // Write one VOC file per image instead of per bounding box.
	trainFrac    float64 // The per category fraction of rows in the train set.
	seed         int64   // The split seed; zero seeds from the clock.

	labelMappings       string  // A comma-separated string of label mappings.
	filterLabels        string  // A comma-separated string of labels to keep (empty keeps all).
	filterMinBboxWidth  float64 // The minimum bounding box width.
	filterMinBboxHeight float64 // The minimum bounding box height.
)

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  with a run configuration:\t-config <file>")
		_, _ = fmt.Fprintln(os.Stderr, "  without:\t\t\t-manifest <path> -categories <path> -job <name>"+
				" [-images <path>]")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	// Input arguments.
	flag.StringVar(&configPath, "config", configPath,
		"The run configuration `path` (JSON with s3_bucket, job_id, ground_truth_job_name,"+
				" photo_dir); the other input flags override its values")
	flag.StringVar(&manifestPath, "manifest", manifestPath,
		"The Ground Truth output manifest `path` (local or s3://)")
	flag.StringVar(&categoriesPath, "categories", categoriesPath,
		"The category file `path` (local or s3://)")
	flag.StringVar(&jobName, "job", jobName, "The Ground Truth job `name`")
	flag.StringVar(&imageDirPath, "images", imageDirPath,
		"The image directory `path` or URI prefix, used in annotation paths")

	// Output arguments.
	flag.StringVar(&annotationsOutDirPath, "annotations-out", "Annotations",
		"The VOC annotation output directory `path`")
	flag.StringVar(&splitsOutDirPath, "splits-out", "Train_Split",
		"The train/validation list output directory `path`")
	flag.StringVar(&kittiOutDirPath, "kitti-out", kittiOutDirPath,
		"The KITTI label output directory `path` (optional)")
	flag.StringVar(&tfRecordOutPath, "tfrecord-out", tfRecordOutPath,
		"The TFRecord output file `path` (optional)")
	flag.StringVar(&tfRecordLabelMapFilePath, "tfrecord-label-map-file", tfRecordLabelMapFilePath,
		"The TFRecord label map file `path`")
	flag.BoolVar(&tfRecordEmbedImages, "tfrecord-embed-images", tfRecordEmbedImages,
		"Read the images from -images and embed them in the TFRecord examples")
	flag.IntVar(&numShardFiles, "num-shards", 1,
		"The number of shard files to create (tfrecord only)")

	// Conversion arguments.
	flag.BoolVar(&groupByImage, "group-by-image", groupByImage,
		"Write one VOC file per image listing all its objects, instead of one file per bounding box")
	flag.Float64Var(&trainFrac, "train-frac", 0.85,
		"The `fraction` of each category's bounding boxes in the train set [0.0, 1.0]")
	flag.Int64Var(&seed, "seed", seed,
		"The random `seed` for the split; zero uses the current time")
	flag.StringVar(&labelMappings, "map-labels", labelMappings,
		"Comma-separated list of old=new label (sub-)string replacements")
	flag.StringVar(&filterLabels, "filter-labels", filterLabels,
		"Comma-separated list of labels to keep (after map-labels; empty string keeps all)")
	flag.Float64Var(&filterMinBboxWidth, "min-bbox-width", filterMinBboxWidth,
		"The min. required width in `pixels` for object bounding boxes")
	flag.Float64Var(&filterMinBboxHeight, "min-bbox-height", filterMinBboxHeight,
		"The min. required height in `pixels` for object bounding boxes")

	// Parse and validate flags.
	flag.Parse()

	// Fill in unset inputs from the run configuration.
	if configPath != "" {
		config, err := gtvoc.LoadConfig(configPath)
		if err != nil {
			log.Fatal("Failed to load the configuration: ", err)
		}
		if manifestPath == "" {
			manifestPath = config.ManifestPath()
		}
		if categoriesPath == "" {
			categoriesPath = config.CategoriesPath()
		}
		if jobName == "" {
			jobName = config.JobName
		}
		if imageDirPath == "" {
			imageDirPath = config.ImagesPath()
		}
	}

	if manifestPath == "" || categoriesPath == "" || jobName == "" {
		printUsageAndExit("Missing manifest, category or job name argument")
	}
	if annotationsOutDirPath == "" || splitsOutDirPath == "" {
		printUsageAndExit("Missing output directory argument")
	}
	if trainFrac < 0 || trainFrac > 1 {
		printUsageAndExit("Invalid -train-frac, must be in [0.0, 1.0]: ", trainFrac)
	}
	if tfRecordOutPath != "" && tfRecordLabelMapFilePath == "" {
		printUsageAndExit("Missing -tfrecord-label-map-file argument")
	}
	if tfRecordEmbedImages && imageDirPath == "" {
		printUsageAndExit("Argument -tfrecord-embed-images requires an image path")
	}
	if filterMinBboxWidth < 0 || filterMinBboxHeight < 0 {
		printUsageAndExit("Invalid minimum bounding box size")
	}
}

func main() {
	// Parse input.
	rows, err := gtvoc.FromGroundTruth(manifestPath, jobName)
	if err != nil {
		log.Fatal("Failed to parse the manifest: ", err)
	}
	categories, err := gtvoc.LoadCategories(categoriesPath)
	if err != nil {
		log.Fatal("Failed to load the categories: ", err)
	}

	// Map labels.
	if len(labelMappings) > 0 {
		if err := rows.MapLabels(strings.Split(labelMappings, ",")); err != nil {
			log.Fatal("Failed to map labels: ", err)
		}
	}

	// Apply filters.
	var labelNames []string
	if filterLabels != "" {
		labelNames = strings.Split(filterLabels, ",")
	}
	if len(labelNames) > 0 || filterMinBboxWidth > 0 || filterMinBboxHeight > 0 {
		rows = rows.Filter(labelNames, filterMinBboxWidth, filterMinBboxHeight)
	}

	// Write VOC annotations.
	vocFiles := gtvoc.ToVOC(rows, gtvoc.VOCOptions{GroupByImage: groupByImage, ImageDir: imageDirPath})
	if err := gtvoc.WriteVOC(annotationsOutDirPath, vocFiles, nil); err != nil {
		log.Fatal("Failed to write VOC annotations: ", err)
	}

	// Split into train and validation sets.
	var rng *rand.Rand
	if seed != 0 {
		rng = rand.New(rand.NewSource(seed))
	}
	train, test, err := gtvoc.StratifiedSplit(rows, gtvoc.ByCategory, trainFrac, rng)
	if err != nil {
		log.Fatal("Failed to split the dataset: ", err)
	}
	if err := gtvoc.WriteSplitLists(splitsOutDirPath, categories, train, test); err != nil {
		log.Fatal("Failed to write the split lists: ", err)
	}

	// Optional outputs.
	if kittiOutDirPath != "" {
		if err := gtvoc.WriteKitti(kittiOutDirPath, gtvoc.ToKitti(rows)); err != nil {
			log.Fatal("Failed to write KITTI labels: ", err)
		}
	}
	if tfRecordOutPath != "" {
		opts := gtvoc.TFRecordOptions{NumShards: numShardFiles}
		if tfRecordEmbedImages {
			opts.ImageDir = imageDirPath
		}
		err := gtvoc.WriteTFRecord(tfRecordOutPath, tfRecordLabelMapFilePath, rows, categories, opts)
		if err != nil {
			log.Fatal("Failed to write TFRecords: ", err)
		}
	}

	log.Printf("Total number of bounding boxes: %d (train %d, validation %d)",
		len(rows), len(train), len(test))
}
