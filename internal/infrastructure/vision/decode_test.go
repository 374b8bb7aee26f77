package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dental-bot/internal/domain/entity"
)

func TestAnchorCount(t *testing.T) {
	require.Equal(t, 8400, AnchorCount(640))
	require.Equal(t, 40656, AnchorCount(1408))
}

func TestLetterbox(t *testing.T) {
	g := Letterbox(256, 128, 64)
	require.Equal(t, 0.25, g.Scale)
	require.Equal(t, [2]int{64, 32}, g.Resized)
	require.Equal(t, 0.0, g.PadX)
	require.Equal(t, 16.0, g.PadY)
}

// buildOutput раскладывает предсказания в формат [4+nc, anchors].
func buildOutput(numClasses int, preds [][]float32) []float32 {
	anchors := len(preds)
	out := make([]float32, (4+numClasses)*anchors)
	for a, p := range preds {
		for r, v := range p {
			out[r*anchors+a] = v
		}
	}
	return out
}

func TestDecodeOutput(t *testing.T) {
	output := buildOutput(2, [][]float32{
		{32, 32, 32, 16, 0.9, 0.1},
		{32, 32, 32, 16, 0.8, 0.05}, // дубликат первой рамки
		{8, 24, 8, 8, 0.2, 0.6},
		{8, 24, 8, 8, 0.0, 0.1}, // ниже порога
	})

	dets, err := DecodeOutput(output, Letterbox(256, 128, 64), DecodeOptions{
		NumClasses:          2,
		ConfidenceThreshold: 0.25,
		IOUThreshold:        0.7,
		Vocabulary:          entity.Vocabulary{entity.LabelBrokenRoot},
	})
	require.NoError(t, err)

	require.Len(t, dets, 2)

	require.Equal(t, 0, dets[0].ClassIndex)
	require.Equal(t, entity.LabelBrokenRoot, dets[0].Label)
	require.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	require.Equal(t, entity.Box{CX: 0.5, CY: 0.5, W: 0.5, H: 0.5}, dets[0].Box)

	require.Equal(t, 1, dets[1].ClassIndex)
	require.Equal(t, entity.Label("Unknown(1)"), dets[1].Label)
	require.Equal(t, entity.Box{CX: 0.125, CY: 0.25, W: 0.125, H: 0.25}, dets[1].Box)
}

func TestDecodeOutput_OverlapAcrossClassesKept(t *testing.T) {
	output := buildOutput(2, [][]float32{
		{32, 32, 32, 16, 0.9, 0},
		{32, 32, 32, 16, 0, 0.8},
	})
	dets, err := DecodeOutput(output, Letterbox(64, 64, 64), DecodeOptions{
		NumClasses:          2,
		ConfidenceThreshold: 0.25,
		IOUThreshold:        0.7,
		Vocabulary:          entity.DefaultVocabulary(),
	})
	require.NoError(t, err)
	require.Len(t, dets, 2)
	require.Equal(t, entity.LabelPCT, dets[1].Label)
}

func TestDecodeOutput_ModelClassBeyondVocabulary(t *testing.T) {
	const modelClasses = 11

	first := []float32{16, 16, 8, 8, 0.9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	second := []float32{48, 48, 8, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0.8}
	output := buildOutput(modelClasses, [][]float32{first, second})

	dets, err := DecodeOutput(output, Letterbox(64, 64, 64), DecodeOptions{
		NumClasses:          modelClasses,
		ConfidenceThreshold: 0.25,
		IOUThreshold:        0.7,
		Vocabulary:          entity.DefaultVocabulary(),
	})
	require.NoError(t, err)
	require.Len(t, dets, 2)
	require.Equal(t, entity.LabelBrokenRoot, dets[0].Label)
	require.Equal(t, 10, dets[1].ClassIndex)
	require.Equal(t, entity.Label("Unknown(10)"), dets[1].Label)

	// выход на 11 классов не раскладывается на 10 строк словаря
	_, err = DecodeOutput(output, Letterbox(64, 64, 64), DecodeOptions{
		NumClasses: len(entity.DefaultVocabulary()),
		Vocabulary: entity.DefaultVocabulary(),
	})
	require.Error(t, err)
}

func TestDecodeOutput_BadShape(t *testing.T) {
	_, err := DecodeOutput([]float32{1, 2, 3}, Letterbox(64, 64, 64), DecodeOptions{NumClasses: 2})
	require.Error(t, err)

	_, err = DecodeOutput(nil, Letterbox(64, 64, 64), DecodeOptions{NumClasses: 2})
	require.Error(t, err)

	_, err = DecodeOutput(make([]float32, 12), Letterbox(64, 64, 64), DecodeOptions{})
	require.Error(t, err)
}

func TestOutputLayout(t *testing.T) {
	vocab := len(entity.DefaultVocabulary())

	classes, anchors, err := OutputLayout([]int64{1, 15, 40656}, 1408, vocab)
	require.NoError(t, err)
	require.Equal(t, 11, classes)
	require.Equal(t, 40656, anchors)

	classes, anchors, err = OutputLayout([]int64{-1, -1, -1}, 640, vocab)
	require.NoError(t, err)
	require.Equal(t, vocab, classes)
	require.Equal(t, 8400, anchors)

	_, _, err = OutputLayout([]int64{1, 14, 8400}, 1408, vocab)
	require.Error(t, err)

	_, _, err = OutputLayout([]int64{1, 4, 8400}, 640, vocab)
	require.Error(t, err)

	_, _, err = OutputLayout([]int64{1, 14}, 640, vocab)
	require.Error(t, err)
}

func TestIOU(t *testing.T) {
	a := entity.Box{CX: 0.5, CY: 0.5, W: 0.5, H: 0.5}
	require.Equal(t, 1.0, iou(a, a))
	require.Equal(t, 0.0, iou(a, entity.Box{CX: 0.125, CY: 0.125, W: 0.125, H: 0.125}))
}
