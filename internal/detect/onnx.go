package detect

import (
	"context"
	"fmt"
	"image"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"pdf-layout-translator/internal/geom"
	"pdf-layout-translator/internal/layout"
	"pdf-layout-translator/internal/logger"
)

const (
	// inputSize is the square model input resolution.
	inputSize = 1024
	// padValue is the letterbox fill, matching the model's training
	// preprocessing.
	padValue = 114
	// DefaultConfThreshold filters low-confidence detections. Kept low:
	// rescue and NMS downstream handle imprecision better than an
	// aggressive cutoff here.
	DefaultConfThreshold = 0.15
)

// ONNXConfig configures the ONNX runtime detector.
type ONNXConfig struct {
	// ModelPath is the DocLayout-YOLO .onnx file.
	ModelPath string
	// LibraryPath is the onnxruntime shared library; empty uses the
	// platform default search path.
	LibraryPath string
	// ConfThreshold overrides DefaultConfThreshold when positive.
	ConfThreshold float64
}

var ortInit sync.Once
var ortInitErr error

func initRuntime(libraryPath string) error {
	ortInit.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// onnxDetector runs DocLayout-YOLO through onnxruntime. One detector
// holds one session; the resource governor serializes calls, so the
// session itself needs no internal locking.
type onnxDetector struct {
	session   *ort.DynamicAdvancedSession
	threshold float64
}

// NewONNX loads the model and prepares an inference session.
func NewONNX(cfg ONNXConfig) (Detector, error) {
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("detect: initialize onnxruntime: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"images"}, []string{"output0"}, nil)
	if err != nil {
		return nil, fmt.Errorf("detect: create session: %w", err)
	}

	threshold := cfg.ConfThreshold
	if threshold <= 0 {
		threshold = DefaultConfThreshold
	}

	logger.Info("layout detection model loaded",
		logger.String("model", cfg.ModelPath),
		logger.Float64("confThreshold", threshold))

	return &onnxDetector{session: session, threshold: threshold}, nil
}

func (d *onnxDetector) Close() error {
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	return nil
}

// Detect letterboxes the page image to the model input, runs inference,
// and maps detections back into the page's pixel space.
func (d *onnxDetector) Detect(ctx context.Context, img image.Image) ([]layout.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, scale, padX, padY := letterbox(img)

	input, err := ort.NewTensor(ort.NewShape(1, 3, inputSize, inputSize), data)
	if err != nil {
		return nil, fmt.Errorf("detect: create input tensor: %w", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := d.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("detect: inference: %w", err)
	}
	output := outputs[0].(*ort.Tensor[float32])
	defer output.Destroy()

	boxes := d.decode(output.GetData(), output.GetShape(), scale, padX, padY,
		img.Bounds().Dx(), img.Bounds().Dy())

	logger.Debug("layout detection complete", logger.Int("boxes", len(boxes)))
	return boxes, nil
}

// letterbox scales the image into the model input square preserving
// aspect ratio, padding the remainder. Returns CHW float data plus the
// transform needed to map detections back.
func letterbox(img image.Image) (data []float32, scale float64, padX, padY float64) {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()

	scale = float64(inputSize) / float64(srcW)
	if s := float64(inputSize) / float64(srcH); s < scale {
		scale = s
	}
	dstW := int(float64(srcW) * scale)
	dstH := int(float64(srcH) * scale)
	padX = float64(inputSize-dstW) / 2
	padY = float64(inputSize-dstH) / 2

	canvas := image.NewRGBA(image.Rect(0, 0, inputSize, inputSize))
	for i := range canvas.Pix {
		canvas.Pix[i] = padValue
	}
	target := image.Rect(int(padX), int(padY), int(padX)+dstW, int(padY)+dstH)
	draw.BiLinear.Scale(canvas, target, img, img.Bounds(), draw.Src, nil)

	data = make([]float32, 3*inputSize*inputSize)
	plane := inputSize * inputSize
	for y := 0; y < inputSize; y++ {
		for x := 0; x < inputSize; x++ {
			i := y*inputSize + x
			data[i] = float32(canvas.Pix[i*4]) / 255.0
			data[plane+i] = float32(canvas.Pix[i*4+1]) / 255.0
			data[2*plane+i] = float32(canvas.Pix[i*4+2]) / 255.0
		}
	}
	return data, scale, padX, padY
}

// decode parses model output rows of (x1, y1, x2, y2, score, class),
// undoing the letterbox transform and clamping to the page image.
func (d *onnxDetector) decode(out []float32, shape ort.Shape, scale, padX, padY float64, imgW, imgH int) []layout.Box {
	stride := int(shape[len(shape)-1])
	if stride < 6 {
		return nil
	}

	var boxes []layout.Box
	for off := 0; off+stride <= len(out); off += stride {
		score := float64(out[off+4])
		if score < d.threshold {
			continue
		}
		class := int(out[off+5])
		kind, ok := classKind[class]
		if !ok {
			continue
		}

		r := geom.NewRect(
			(float64(out[off])-padX)/scale,
			(float64(out[off+1])-padY)/scale,
			(float64(out[off+2])-padX)/scale,
			(float64(out[off+3])-padY)/scale,
		)
		r = r.Intersect(geom.NewRect(0, 0, float64(imgW), float64(imgH)))
		if r.IsEmpty() {
			continue
		}
		boxes = append(boxes, layout.Box{Kind: kind, Rect: r, Confidence: score})
	}
	return boxes
}
