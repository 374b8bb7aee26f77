//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"dental-bot/internal/domain/entity"
)

// YOLODetector запускает YOLOv8 в onnxruntime. Один сеанс на процесс,
// входной и выходной тензоры общие, поэтому запуски сериализуются.
type YOLODetector struct {
	opts       Options
	numClasses int // по форме выхода модели, может превышать словарь
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	mu         sync.Mutex
}

// NewYOLODetector загружает модель и готовит тензоры под размер входа.
func NewYOLODetector(opts Options) (*YOLODetector, error) {
	if opts.ImageSize <= 0 || opts.ImageSize%32 != 0 {
		return nil, errors.Errorf("image size %d is not a positive multiple of 32", opts.ImageSize)
	}
	if len(opts.Vocabulary) == 0 {
		return nil, errors.New("empty class vocabulary")
	}

	if !ort.IsInitialized() {
		if opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, errors.Wrap(err, "initialize onnxruntime")
		}
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read model info %s", opts.ModelPath)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, errors.Errorf("model has %d inputs and %d outputs, want 1 and 1", len(inputs), len(outputs))
	}
	numClasses, anchors, err := OutputLayout(outputs[0].Dimensions, opts.ImageSize, len(opts.Vocabulary))
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", opts.ModelPath)
	}

	size := int64(opts.ImageSize)
	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, size, size))
	if err != nil {
		return nil, errors.Wrap(err, "create input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+numClasses), int64(anchors)))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "create output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "create session options")
	}
	defer options.Destroy()
	_ = options.SetIntraOpNumThreads(4)
	_ = options.SetInterOpNumThreads(2)

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrapf(err, "load model %s", opts.ModelPath)
	}

	return &YOLODetector{
		opts:       opts,
		numClasses: numClasses,
		session:    session,
		input:      input,
		output:     output,
	}, nil
}

// Detect запускает модель на снимке и возвращает детекции в нормализованных координатах.
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) (*entity.DetectionResult, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	geom := Letterbox(mat.Cols(), mat.Rows(), d.opts.ImageSize)
	blob, err := letterboxBlob(mat, geom)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	data, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read blob")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	copy(d.input.GetData(), data)
	if err := d.session.Run(); err != nil {
		d.mu.Unlock()
		return nil, errors.Wrap(err, "run inference")
	}
	raw := make([]float32, len(d.output.GetData()))
	copy(raw, d.output.GetData())
	d.mu.Unlock()

	detections, err := DecodeOutput(raw, geom, DecodeOptions{
		NumClasses:          d.numClasses,
		ConfidenceThreshold: d.opts.ConfidenceThreshold,
		IOUThreshold:        d.opts.IOUThreshold,
		Vocabulary:          d.opts.Vocabulary,
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode output")
	}

	return &entity.DetectionResult{
		ImageWidth:  mat.Cols(),
		ImageHeight: mat.Rows(),
		Detections:  detections,
	}, nil
}

// Annotate рисует рамки с подписями классов и возвращает JPEG.
func (d *YOLODetector) Annotate(imageData []byte, detections []entity.Detection) ([]byte, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	thickness := maxInt(2, mat.Cols()/800)
	for _, det := range detections {
		rect := det.Box.Rect(mat.Cols(), mat.Rows())
		c := classColor(det.ClassIndex)
		gocv.Rectangle(&mat, rect, c, thickness)

		text := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
		origin := image.Pt(rect.Min.X, maxInt(rect.Min.Y-6, 12))
		gocv.PutText(&mat, text, origin, gocv.FontHersheySimplex, 0.3*float64(thickness), c, thickness)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "convert mat")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, errors.Wrap(err, "encode jpeg")
	}

	return buf.Bytes(), nil
}

// Close освобождает сеанс и тензоры.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if d.session != nil {
		err = d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
	return err
}

// letterboxBlob масштабирует снимок, дополняет серым до квадрата и
// превращает в NCHW-блоб RGB со значениями 0..1.
func letterboxBlob(mat gocv.Mat, geom Geometry) (gocv.Mat, error) {
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(geom.Resized[0], geom.Resized[1]), 0, 0, gocv.InterpolationLinear)

	left, top := int(geom.PadX), int(geom.PadY)
	right := geom.Size - geom.Resized[0] - left
	bottom := geom.Size - geom.Resized[1] - top

	padded := gocv.NewMat()
	defer padded.Close()
	gray := color.RGBA{R: 114, G: 114, B: 114, A: 255}
	gocv.CopyMakeBorder(resized, &padded, top, bottom, left, right, gocv.BorderConstant, gray)
	if padded.Cols() != geom.Size || padded.Rows() != geom.Size {
		return gocv.NewMat(), errors.Errorf("letterbox produced %dx%d, want %d", padded.Cols(), padded.Rows(), geom.Size)
	}

	blob := gocv.BlobFromImage(padded, 1.0/255.0, image.Pt(geom.Size, geom.Size), gocv.NewScalar(0, 0, 0, 0), true, false)
	return blob, nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
}

func classColor(index int) color.RGBA {
	if index < 0 {
		index = -index
	}
	return palette[index%len(palette)]
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
