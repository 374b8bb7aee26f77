package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dental-bot/internal/domain/diagnosis"
	"dental-bot/internal/domain/entity"
	"dental-bot/internal/domain/port"
)

const defaultBatchLimit = 4

type ExaminationService struct {
	users      *UserService
	engine     *diagnosis.Engine
	detector   port.LandmarkDetector
	describer  port.ReportDescriber
	repo       port.ExaminationRepository
	log        *zap.Logger
	batchLimit int
}

// ExaminationOutput содержит результат обследования и снимок с рамками.
type ExaminationOutput struct {
	Examination *entity.Examination
	Annotated   []byte
}

// NewExaminationService создаёт сервис обследования снимков.
// detector, describer и repo могут быть nil.
func NewExaminationService(
	users *UserService,
	engine *diagnosis.Engine,
	detector port.LandmarkDetector,
	describer port.ReportDescriber,
	repo port.ExaminationRepository,
	log *zap.Logger,
) *ExaminationService {
	if engine == nil {
		engine = diagnosis.NewEngine(nil)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ExaminationService{
		users:      users,
		engine:     engine,
		detector:   detector,
		describer:  describer,
		repo:       repo,
		log:        log,
		batchLimit: defaultBatchLimit,
	}
}

// SetBatchLimit ограничивает число снимков, обрабатываемых одновременно.
func (s *ExaminationService) SetBatchLimit(n int) {
	if n > 0 {
		s.batchLimit = n
	}
}

// Diagnose строит отчёт по готовому набору меток без детектора.
func (s *ExaminationService) Diagnose(labels []entity.Label) entity.DiagnosisReport {
	return s.engine.Diagnose(labels)
}

// Examine запускает детектор на снимке и строит отчёт.
func (s *ExaminationService) Examine(ctx context.Context, userID int64, image []byte) (*ExaminationOutput, error) {
	if s.detector == nil {
		return nil, fmt.Errorf("%w: %w", ErrInputAcquisition, ErrDetectorNotConfigured)
	}
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInputAcquisition)
	}

	result, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: detect: %w", ErrInputAcquisition, err)
	}

	report := s.engine.DiagnoseDetections(result.Detections)
	exam := entity.NewExamination(userID, result.Detections, report)
	exam.ImageWidth = result.ImageWidth
	exam.ImageHeight = result.ImageHeight

	s.log.Info("radiograph examined",
		zap.String("examination_id", exam.ID.String()),
		zap.Int64("user_id", userID),
		zap.Int("detections", len(result.Detections)),
		zap.Int("broken_roots", report.BrokenRoots),
		zap.Int("pct", report.PCT),
	)

	// Картинка с рамками и пояснение не обязательны для результата.
	var annotated []byte
	if len(result.Detections) > 0 {
		annotated, err = s.detector.Annotate(image, result.Detections)
		if err != nil {
			s.log.Warn("annotate radiograph", zap.String("examination_id", exam.ID.String()), zap.Error(err))
			annotated = nil
		}
	}

	if s.describer != nil {
		explanation, err := s.describer.Describe(ctx, report)
		if err != nil {
			s.log.Warn("describe report", zap.String("examination_id", exam.ID.String()), zap.Error(err))
		} else {
			exam.Explanation = explanation
		}
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, exam); err != nil {
			return nil, fmt.Errorf("save examination: %w", err)
		}
	}

	return &ExaminationOutput{Examination: exam, Annotated: annotated}, nil
}

// ProcessRadiograph обследует снимок, запрошенный пользователем бота через /check,
// и возвращает пользователя в главное меню после обработки.
func (s *ExaminationService) ProcessRadiograph(ctx context.Context, userID, chatID int64, image []byte) (*ExaminationOutput, error) {
	if _, err := s.users.BeginProcessing(ctx, userID, chatID); err != nil {
		return nil, err
	}
	defer func() {
		// состояние сбрасывается и после отмены запроса
		if _, err := s.users.SetState(context.WithoutCancel(ctx), userID, chatID, entity.StateMainMenu); err != nil {
			s.log.Warn("reset user state", zap.Int64("user_id", userID), zap.Error(err))
		}
	}()

	return s.Examine(ctx, userID, image)
}

// ExamineBatch обследует несколько снимков параллельно.
// Результаты идут в порядке входных снимков; первая ошибка отменяет остальные.
func (s *ExaminationService) ExamineBatch(ctx context.Context, userID int64, images [][]byte) ([]*ExaminationOutput, error) {
	out := make([]*ExaminationOutput, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, image := range images {
		i, image := i, image
		g.Go(func() error {
			res, err := s.Examine(gctx, userID, image)
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get возвращает сохранённое обследование.
func (s *ExaminationService) Get(ctx context.Context, id uuid.UUID) (*entity.Examination, error) {
	if s.repo == nil {
		return nil, port.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// History возвращает последние обследования пользователя.
func (s *ExaminationService) History(ctx context.Context, userID int64, limit int) ([]*entity.Examination, error) {
	if s.repo == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
