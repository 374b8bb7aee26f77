package container

import (
	"go.uber.org/zap"

	app "dental-bot/internal/application"
	"dental-bot/internal/domain/diagnosis"
	"dental-bot/internal/domain/port"
)

type Container struct {
	UserService        *app.UserService
	ExaminationService *app.ExaminationService
}

// Deps зависимости приложения. Detector, Describer и Examinations могут быть nil,
// нулевой BatchLimit оставляет предел по умолчанию.
type Deps struct {
	Users        port.UserRepository
	Examinations port.ExaminationRepository
	Detector     port.LandmarkDetector
	Describer    port.ReportDescriber
	BatchLimit   int
	Log          *zap.Logger
}

func New(deps Deps) *Container {
	userService := app.NewUserService(deps.Users)
	examinationService := app.NewExaminationService(
		userService,
		diagnosis.NewEngine(nil),
		deps.Detector,
		deps.Describer,
		deps.Examinations,
		deps.Log,
	)
	examinationService.SetBatchLimit(deps.BatchLimit)

	return &Container{
		UserService:        userService,
		ExaminationService: examinationService,
	}
}
