// Command identify walks a video, detects faces in sampled frames, and
// clusters them into persistent identities. Each identity ends up as a
// folder of cropped portraits plus its reference image.
package main

import (
	"flag"
	"fmt"
	"os"

	"gocv.io/x/gocv"

	"github.com/annolab/mediasync/internal/config"
	"github.com/annolab/mediasync/internal/log"
	"github.com/annolab/mediasync/pkg/detect"
	"github.com/annolab/mediasync/pkg/identify"
	"github.com/annolab/mediasync/pkg/imaging"
	"github.com/annolab/mediasync/pkg/progress"
)

func main() {
	model := flag.String("model", "", "detector model file (.xml, .caffemodel, .pb, .onnx)")
	video := flag.String("video", "", "input video file")
	outDir := flag.String("out", "identities", "output folder root")
	step := flag.Int("step", 5, "process every Nth frame")
	threshold := flag.Float64("threshold", identify.DefaultThreshold, "identity acceptance threshold")
	level := flag.String("log-level", config.LogLevel(), "log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*level)
	logger := log.L()

	if *model == "" || *video == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -model file -video file [-out dir]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *step < 1 {
		*step = 1
	}

	multi := detect.NewMulti(logger)
	defer multi.Close()
	if err := multi.AddModel(*model); err != nil {
		logger.Error("model load failed", "model", *model, "error", err)
		os.Exit(1)
	}

	registry := identify.NewRegistry(logger)
	defer registry.Close()
	if err := registry.SetThreshold(*threshold); err != nil {
		logger.Error("bad threshold", "error", err)
		os.Exit(2)
	}

	vc, err := gocv.OpenVideoCapture(*video)
	if err != nil {
		logger.Error("video open failed", "file", *video, "error", err)
		os.Exit(1)
	}
	defer vc.Close()
	total := int(vc.Get(gocv.VideoCaptureFrameCount))

	obs := progress.NewTerminal()
	obs.SetHeader("identifying faces in " + *video)
	defer obs.Clear()

	frame := gocv.NewMat()
	defer frame.Close()

	processed := 0
	for idx := 0; vc.Read(&frame); idx++ {
		if idx%*step != 0 || frame.Empty() {
			continue
		}
		if total > 0 {
			obs.Update(float64(idx)/float64(total)*100, fmt.Sprintf("frame %d", idx))
		}

		img, err := imaging.FromMat(frame.Clone())
		if err != nil {
			continue
		}
		if err := multi.Detect(img); err != nil {
			logger.Warn("detection failed", "frame", idx, "error", err)
			img.Close()
			continue
		}

		for _, c := range multi.Coords() {
			portrait, err := img.ICrop(c)
			if err != nil {
				continue
			}
			kid, score := registry.Identify(portrait, &c)
			if kid == "" {
				kid = registry.CreateIdentifier()
				logger.Info("new identity", "kid", kid, "frame", idx)
				if err := registry.AddImage(kid, portrait, true); err != nil {
					logger.Warn("reference add failed", "kid", kid, "error", err)
				}
			} else {
				logger.Debug("matched", "kid", kid, "score", score, "frame", idx)
				if err := registry.AddImage(kid, portrait, false); err != nil {
					logger.Warn("image add failed", "kid", kid, "error", err)
				}
			}
			registry.SetCoords(kid, c)
			portrait.Close()
		}
		img.Close()
		processed++

		// Refresh the recognizer as material accumulates.
		if processed%50 == 0 {
			if err := registry.TrainRecognizer(); err != nil {
				logger.Debug("recognizer training skipped", "error", err)
			}
		}
	}
	obs.Update(100, "writing identities")

	if err := registry.Write(*outDir); err != nil {
		logger.Error("write failed", "folder", *outDir, "error", err)
		os.Exit(1)
	}
	logger.Info("done", "identities", len(registry.Kids()), "folder", *outDir)
}
