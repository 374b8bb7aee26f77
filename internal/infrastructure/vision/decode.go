package vision

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"dental-bot/internal/domain/entity"
)

// Шаги сетки голов YOLOv8.
var yoloStrides = []int{8, 16, 32}

// AnchorCount возвращает число предсказаний YOLOv8 для квадратного входа size.
func AnchorCount(size int) int {
	n := 0
	for _, s := range yoloStrides {
		n += (size / s) * (size / s)
	}
	return n
}

// Geometry описывает letterbox-преобразование исходного снимка во вход модели.
type Geometry struct {
	Width   int     // ширина исходного снимка
	Height  int     // высота исходного снимка
	Size    int     // сторона квадратного входа модели
	Scale   float64 // масштаб исходного снимка
	PadX    float64 // отступ слева во входе модели
	PadY    float64 // отступ сверху во входе модели
	Resized [2]int  // размер снимка после масштабирования (w, h)
}

// Letterbox считает геометрию вписывания снимка в квадрат size с центрированием.
// Отступы целые, остаток уходит вправо и вниз.
func Letterbox(width, height, size int) Geometry {
	scale := math.Min(float64(size)/float64(width), float64(size)/float64(height))
	rw := int(math.Round(float64(width) * scale))
	rh := int(math.Round(float64(height) * scale))
	return Geometry{
		Width:   width,
		Height:  height,
		Size:    size,
		Scale:   scale,
		PadX:    float64((size - rw) / 2),
		PadY:    float64((size - rh) / 2),
		Resized: [2]int{rw, rh},
	}
}

// toBox переводит рамку из координат входа модели в нормализованные координаты снимка.
func (g Geometry) toBox(cx, cy, w, h float64) entity.Box {
	x1 := clamp01(((cx - w/2) - g.PadX) / g.Scale / float64(g.Width))
	y1 := clamp01(((cy - h/2) - g.PadY) / g.Scale / float64(g.Height))
	x2 := clamp01(((cx + w/2) - g.PadX) / g.Scale / float64(g.Width))
	y2 := clamp01(((cy + h/2) - g.PadY) / g.Scale / float64(g.Height))
	return entity.Box{CX: (x1 + x2) / 2, CY: (y1 + y2) / 2, W: x2 - x1, H: y2 - y1}
}

// OutputLayout выводит число классов и предсказаний из формы выхода
// модели [1, 4+nc, anchors]. Динамические оси (<= 0) берутся из vocabSize
// и размера входа. Классов у модели может быть больше, чем имён в словаре.
func OutputLayout(dims []int64, imageSize, vocabSize int) (numClasses, anchors int, err error) {
	if len(dims) != 3 {
		return 0, 0, errors.Errorf("unexpected output rank %d, want [1, 4+nc, anchors]", len(dims))
	}

	numClasses = vocabSize
	if dims[1] > 0 {
		numClasses = int(dims[1]) - 4
	}
	if numClasses <= 0 {
		return 0, 0, errors.Errorf("output has no class rows: %v", dims)
	}

	anchors = AnchorCount(imageSize)
	if dims[2] > 0 && int(dims[2]) != anchors {
		return 0, 0, errors.Errorf("output has %d anchors, image size %d gives %d", dims[2], imageSize, anchors)
	}
	return numClasses, anchors, nil
}

// DecodeOptions параметры разбора выхода модели.
// NumClasses берётся из формы выхода модели, а не из словаря.
type DecodeOptions struct {
	NumClasses          int
	ConfidenceThreshold float64
	IOUThreshold        float64
	Vocabulary          entity.Vocabulary
}

// DecodeOutput разбирает выход YOLOv8 формы [1, 4+nc, anchors]:
// отбор по порогу уверенности, NMS внутри класса, сортировка по уверенности.
// Индексы классов вне словаря дают метки Unknown(<id>).
func DecodeOutput(output []float32, geom Geometry, opts DecodeOptions) ([]entity.Detection, error) {
	if opts.NumClasses <= 0 {
		return nil, errors.Errorf("invalid class count %d", opts.NumClasses)
	}
	rows := 4 + opts.NumClasses
	if len(output) == 0 || len(output)%rows != 0 {
		return nil, errors.Errorf("output of %d values does not fit %d rows", len(output), rows)
	}
	anchors := len(output) / rows

	candidates := make([]entity.Detection, 0, 64)
	for a := 0; a < anchors; a++ {
		classID, best := -1, float32(0)
		for c := 0; c < opts.NumClasses; c++ {
			if p := output[(4+c)*anchors+a]; p > best {
				best, classID = p, c
			}
		}
		if classID < 0 || float64(best) < opts.ConfidenceThreshold {
			continue
		}

		box := geom.toBox(
			float64(output[a]),
			float64(output[anchors+a]),
			float64(output[2*anchors+a]),
			float64(output[3*anchors+a]),
		)
		if box.W <= 0 || box.H <= 0 {
			continue
		}
		candidates = append(candidates, entity.Detection{
			ClassIndex: classID,
			Label:      opts.Vocabulary.Resolve(classID),
			Confidence: float64(best),
			Box:        box,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	return suppress(candidates, opts.IOUThreshold), nil
}

// suppress жадный NMS по классам; вход отсортирован по убыванию уверенности.
func suppress(sorted []entity.Detection, iouThreshold float64) []entity.Detection {
	kept := make([]entity.Detection, 0, len(sorted))
	for _, cand := range sorted {
		overlaps := false
		for _, k := range kept {
			if k.ClassIndex == cand.ClassIndex && iou(k.Box, cand.Box) > iouThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, cand)
		}
	}
	return kept
}

func iou(a, b entity.Box) float64 {
	ix := math.Min(a.CX+a.W/2, b.CX+b.W/2) - math.Max(a.CX-a.W/2, b.CX-b.W/2)
	iy := math.Min(a.CY+a.H/2, b.CY+b.H/2) - math.Max(a.CY-a.H/2, b.CY-b.H/2)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := a.W*a.H + b.W*b.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
