package entity

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoxRect(t *testing.T) {
	b := Box{CX: 0.5, CY: 0.5, W: 0.25, H: 0.5}
	require.Equal(t, image.Rect(37, 25, 62, 75), b.Rect(100, 100))
}

func TestBoxRect_ClampedToImage(t *testing.T) {
	b := Box{CX: 0.875, CY: 0.125, W: 0.5, H: 0.5}
	require.Equal(t, image.Rect(62, 0, 100, 37), b.Rect(100, 100))
}

func TestLabels_KeepsOrderAndDuplicates(t *testing.T) {
	dets := []Detection{
		{Label: LabelPCT},
		{Label: LabelBrokenRoot},
		{Label: LabelPCT},
	}
	require.Equal(t, []Label{LabelPCT, LabelBrokenRoot, LabelPCT}, Labels(dets))
}
