package detect

import (
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/annolab/mediasync/pkg/geometry"
	"github.com/annolab/mediasync/pkg/imaging"
	"gocv.io/x/gocv"
)

// DNN input geometry. Caffe and TensorFlow nets take a fixed height with
// proportional width; the ONNX net takes a fixed 320x240 input.
const (
	dnnInputHeight = 360
	onnxInputW     = 320
	onnxInputH     = 240
)

// Per-channel mean subtracted from the input blob (BGR order).
var dnnMean = gocv.NewScalar(103.93, 116.77, 123.68, 0)

// dnnDetector is the shared core of the Caffe, TensorFlow and ONNX
// detectors: load a net, push a 4-D blob through it and decode the
// detection matrix.
type dnnDetector struct {
	base
	net      gocv.Net
	loaded   bool
	protoExt string // "" when the backend needs no sibling proto
	fixed    bool   // fixed onnxInputW x onnxInputH input
	readNet  func(model, proto string) gocv.Net
}

// CaffeDetector runs a Caffe SSD network (.caffemodel + .prototxt).
type CaffeDetector struct{ dnnDetector }

// TensorFlowDetector runs a TensorFlow network (.pb + .pbtxt).
type TensorFlowDetector struct{ dnnDetector }

// ONNXDetector runs an ONNX network (.onnx, no sibling proto).
type ONNXDetector struct{ dnnDetector }

// NewCaffe creates an unloaded Caffe DNN detector.
func NewCaffe(logger *slog.Logger) *CaffeDetector {
	return &CaffeDetector{dnnDetector{
		base:     newBase(".caffemodel", DefaultMinScore, logger),
		protoExt: ".prototxt",
		readNet: func(model, proto string) gocv.Net {
			return gocv.ReadNetFromCaffe(proto, model)
		},
	}}
}

// NewTensorFlow creates an unloaded TensorFlow DNN detector.
func NewTensorFlow(logger *slog.Logger) *TensorFlowDetector {
	return &TensorFlowDetector{dnnDetector{
		base:     newBase(".pb", DefaultMinScore, logger),
		protoExt: ".pbtxt",
		readNet: func(model, proto string) gocv.Net {
			return gocv.ReadNet(model, proto)
		},
	}}
}

// NewONNX creates an unloaded ONNX DNN detector.
func NewONNX(logger *slog.Logger) *ONNXDetector {
	return &ONNXDetector{dnnDetector{
		base:  newBase(".onnx", DefaultMinScore, logger),
		fixed: true,
		readNet: func(model, _ string) gocv.Net {
			return gocv.ReadNetFromONNX(model)
		},
	}}
}

// LoadModel loads the network. Backends with a sibling proto accept its
// path as the first extra argument; otherwise the proto is looked up next
// to the model file.
func (d *dnnDetector) LoadModel(path string, extra ...string) error {
	if err := d.checkModel(path); err != nil {
		return err
	}
	proto := ""
	if d.protoExt != "" {
		if len(extra) > 0 {
			proto = extra[0]
		} else {
			proto = strings.TrimSuffix(path, filepath.Ext(path)) + d.protoExt
		}
		if _, err := os.Stat(proto); err != nil {
			return fmt.Errorf("%w: %s", ErrProtoMissing, proto)
		}
	}
	net := d.readNet(path, proto)
	if net.Empty() {
		return fmt.Errorf("detect: %s: unreadable model", path)
	}
	if d.loaded {
		d.net.Close()
	}
	d.net = net
	d.loaded = true
	return nil
}

// Detect runs the network over the image, with overlap resolution.
func (d *dnnDetector) Detect(img *imaging.Image) error {
	if !d.loaded {
		return ErrNotLoaded
	}
	return d.run(img, d.detection, true)
}

// inputSize returns the blob size for an image of the given shape.
func (d *dnnDetector) inputSize(w, h int) image.Point {
	if d.fixed {
		return image.Pt(onnxInputW, onnxInputH)
	}
	prop := int(math.Round(float64(w) * dnnInputHeight / float64(h)))
	return image.Pt(prop, dnnInputHeight)
}

func (d *dnnDetector) detection(img *imaging.Image) error {
	bgr := img.ToBGR()
	defer bgr.Close()

	blob := gocv.BlobFromImage(bgr.Mat(), 1.0, d.inputSize(img.W(), img.H()),
		dnnMean, false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	// Detections come as a 4-D array [1, 1, n, 7]; columns 2..6 of each
	// row hold confidence, x1, y1, x2, y2 with normalized coordinates.
	data, err := out.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("detect: read detections: %w", err)
	}
	const stride = 7
	for i := 0; i+stride <= len(data); i += stride {
		conf := float64(data[i+2])
		if conf <= 0 || conf > 1 {
			continue
		}
		x1 := clampNorm(data[i+3])
		y1 := clampNorm(data[i+4])
		x2 := clampNorm(data[i+5])
		y2 := clampNorm(data[i+6])

		x := int(x1 * float32(img.W()))
		y := int(y1 * float32(img.H()))
		w := int((x2 - x1) * float32(img.W()))
		h := int((y2 - y1) * float32(img.H()))
		if w <= 0 || h <= 0 || d.tooSmall(w, h, img.W(), img.H()) {
			continue
		}
		c, err := geometry.NewScored(x, y, w, h, conf)
		if err != nil {
			d.logger.Warn("dnn detection out of range",
				"x", x, "y", y, "w", w, "h", h, "error", err)
			continue
		}
		d.coords = append(d.coords, c)
	}
	return nil
}

// clampNorm clamps a normalized coordinate at zero; nets occasionally
// emit slightly negative box edges.
func clampNorm(v float32) float32 {
	if v < 0 {
		return 0
	}
	return v
}

// Close releases the network.
func (d *dnnDetector) Close() error {
	if d.loaded {
		d.loaded = false
		return d.net.Close()
	}
	return nil
}
