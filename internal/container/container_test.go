package container

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	app "dental-bot/internal/application"
	"dental-bot/internal/domain/entity"
	"dental-bot/internal/infrastructure/storage"
)

// countingDetector запоминает наибольшее число одновременных вызовов Detect.
type countingDetector struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (d *countingDetector) Detect(ctx context.Context, imageData []byte) (*entity.DetectionResult, error) {
	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		p := d.peak.Load()
		if n <= p || d.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return &entity.DetectionResult{ImageWidth: 1, ImageHeight: 1}, nil
}

func (d *countingDetector) Annotate(imageData []byte, detections []entity.Detection) ([]byte, error) {
	return nil, nil
}

func TestNew_WithoutDetector(t *testing.T) {
	c := New(Deps{
		Users:        storage.NewMemoryUserRepository(),
		Examinations: storage.NewMemoryExaminationRepository(),
	})

	report := c.ExaminationService.Diagnose([]entity.Label{entity.LabelBrokenRoot})
	require.Equal(t, 1, report.BrokenRoots)

	_, err := c.ExaminationService.Examine(context.Background(), 1, []byte("x"))
	require.ErrorIs(t, err, app.ErrDetectorNotConfigured)

	user, err := c.UserService.BeginCheck(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingRadiograph, user.State)
}

func TestNew_BatchLimit(t *testing.T) {
	det := &countingDetector{}
	c := New(Deps{
		Users:      storage.NewMemoryUserRepository(),
		Detector:   det,
		BatchLimit: 1,
	})

	images := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")}
	outs, err := c.ExaminationService.ExamineBatch(context.Background(), 1, images)
	require.NoError(t, err)
	require.Len(t, outs, len(images))
	require.Equal(t, int32(1), det.peak.Load())
}
