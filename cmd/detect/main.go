// Command detect runs one or more detection models over a set of
// images, draws the surviving boxes, and appends them to a coordinates
// CSV file.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/annolab/mediasync/internal/config"
	"github.com/annolab/mediasync/internal/log"
	"github.com/annolab/mediasync/pkg/detect"
	"github.com/annolab/mediasync/pkg/imaging"
	"github.com/annolab/mediasync/pkg/progress"
)

type modelList []string

func (m *modelList) String() string { return strings.Join(*m, ",") }

func (m *modelList) Set(v string) error {
	*m = append(*m, v)
	return nil
}

func main() {
	var models modelList
	flag.Var(&models, "model", "model file (.xml, .caffemodel, .pb, .onnx); repeatable")
	minScore := flag.Float64("min-score", detect.DefaultMinScore, "confidence floor for kept detections")
	minRatio := flag.Float64("min-ratio", detect.DefaultMinRatio, "minimum detection size relative to the image")
	csvPath := flag.String("csv", "coords.csv", "coordinates CSV output, appended")
	outDir := flag.String("out", "", "directory for annotated copies (empty = none)")
	level := flag.String("log-level", config.LogLevel(), "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*level)
	logger := log.L()

	images := flag.Args()
	if len(models) == 0 || len(images) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s -model file [-model file ...] image...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	multi := detect.NewMulti(logger)
	defer multi.Close()
	for _, m := range models {
		// Bare names resolve against the model directory.
		if _, err := os.Stat(m); err != nil && config.ModelDir() != "" {
			m = filepath.Join(config.ModelDir(), m)
		}
		if err := multi.AddModel(m); err != nil {
			logger.Error("model skipped", "model", m, "error", err)
		}
	}
	if multi.Size() == 0 {
		logger.Error("no model loaded")
		os.Exit(1)
	}
	if err := multi.SetMinScore(*minScore); err != nil {
		logger.Error("bad min-score", "error", err)
		os.Exit(2)
	}
	if err := multi.SetMinRatio(*minRatio); err != nil {
		logger.Error("bad min-ratio", "error", err)
		os.Exit(2)
	}

	obs := progress.NewTerminal()
	obs.SetHeader(fmt.Sprintf("detecting over %d images", len(images)))
	multi.SetObserver(obs)
	defer obs.Clear()

	failed := 0
	for i, path := range images {
		obs.SetNew()
		obs.Update(float64(i)/float64(len(images))*100, filepath.Base(path))

		img, err := imaging.Open(path)
		if err != nil {
			logger.Error("image skipped", "file", path, "error", err)
			failed++
			continue
		}

		if err := multi.Detect(img); err != nil {
			logger.Error("detection failed", "file", path, "error", err)
			img.Close()
			failed++
			continue
		}
		coords := multi.Coords()
		logger.Info("detected", "file", path, "boxes", len(coords))

		if err := imaging.AppendCoordsCSV(*csvPath, coords, filepath.Base(path)); err != nil {
			logger.Error("csv append failed", "file", *csvPath, "error", err)
		}

		if *outDir != "" {
			annotated := img.Copy()
			annotated.ISurround(coords, [3]uint8{0, 0, 255}, 2, true)
			out := filepath.Join(*outDir, filepath.Base(path))
			if err := annotated.Write(out); err != nil {
				logger.Error("annotated copy failed", "file", out, "error", err)
			}
			annotated.Close()
		}
		img.Close()
	}
	obs.Update(100, "done")

	if failed == len(images) {
		os.Exit(1)
	}
}
