package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dental-bot/config"
	telegram "dental-bot/internal/api"
	"dental-bot/internal/api/rest"
	"dental-bot/internal/container"
	"dental-bot/internal/domain/entity"
	"dental-bot/internal/domain/port"
	"dental-bot/internal/infrastructure/describer"
	"dental-bot/internal/infrastructure/storage"
	"dental-bot/internal/infrastructure/vision"
	"dental-bot/internal/logger"
)

var (
	cfg *config.Config
	log *zap.Logger

	labelsFile string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "dental-bot",
	Short:         "Panoramic radiograph screening: broken roots, PCT and Kennedy classification",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log, err = logger.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot (and the HTTP API when HTTP_ADDR is set)",
	RunE:  runBot,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run only the HTTP API",
	RunE:  runServe,
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [labels...]",
	Short: "Print the diagnosis report for detector labels",
	Long: `Builds the four-line report from class labels without running the detector.

Example:
  dental-bot diagnose Broken_Root Broken_Root PCT Free_R_Max
  dental-bot diagnose --file labels.json`,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVarP(&labelsFile, "file", "f", "", "JSON file with an array of labels")
	diagnoseCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	rootCmd.AddCommand(botCmd, serveCmd, diagnoseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, cleanup, err := buildContainer(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer, log)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("bot is running")
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if cfg.HTTPAddr != "" {
		g.Go(func() error { return serveHTTP(gctx, appContainer) })
	}
	return g.Wait()
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appContainer, cleanup, err := buildContainer(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return serveHTTP(ctx, appContainer)
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	raw := args
	if labelsFile != "" {
		data, err := os.ReadFile(labelsFile)
		if err != nil {
			return fmt.Errorf("read labels: %w", err)
		}
		var fromFile []string
		if err := json.Unmarshal(data, &fromFile); err != nil {
			return fmt.Errorf("parse labels: %w", err)
		}
		raw = append(raw, fromFile...)
	}

	labels := make([]entity.Label, 0, len(raw))
	for _, l := range raw {
		labels = append(labels, entity.Label(l))
	}

	appContainer := container.New(container.Deps{
		Users: storage.NewMemoryUserRepository(),
		Log:   log,
	})
	report := appContainer.ExaminationService.Diagnose(labels)

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"statements": report.Statements(), "report": report})
	}
	for _, s := range report.Statements() {
		fmt.Fprintln(out, s)
	}
	return nil
}

// buildContainer собирает сервисы приложения из конфигурации.
func buildContainer(ctx context.Context) (*container.Container, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	vocab, err := config.LoadVocabulary(cfg.ClassesPath)
	if err != nil {
		return nil, func() {}, err
	}

	opts := vision.DefaultOptions()
	opts.ModelPath = cfg.ModelPath
	opts.LibraryPath = cfg.ORTLibraryPath
	opts.ImageSize = cfg.ImageSize
	opts.ConfidenceThreshold = cfg.ConfidenceThreshold
	opts.IOUThreshold = cfg.IOUThreshold
	if len(vocab) > 0 {
		opts.Vocabulary = vocab
	}

	detector, err := vision.NewYOLODetector(opts)
	if err != nil {
		return nil, func() {}, fmt.Errorf("load detector: %w", err)
	}
	closers = append(closers, func() { _ = detector.Close() })
	log.Info("detector loaded", zap.String("model", cfg.ModelPath), zap.Int("classes", len(opts.Vocabulary)))

	var exams port.ExaminationRepository = storage.NewMemoryExaminationRepository()
	if cfg.DatabaseURL != "" {
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() { _ = db.Close() })

		repo := storage.NewPostgresExaminationRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("migrate: %w", err)
		}
		exams = repo
		log.Info("postgres storage enabled")
	}

	var desc port.ReportDescriber
	if cfg.GeminiAPIKey != "" {
		gemini, err := describer.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ExplainLanguage)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, func() { _ = gemini.Close() })
		desc = gemini
	}

	return container.New(container.Deps{
		Users:        storage.NewMemoryUserRepository(),
		Examinations: exams,
		Detector:     detector,
		Describer:    desc,
		BatchLimit:   cfg.BatchLimit,
		Log:          log,
	}), cleanup, nil
}

// serveHTTP запускает HTTP API и останавливает его при отмене контекста.
func serveHTTP(ctx context.Context, c *container.Container) error {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           rest.NewServer(c.ExaminationService, log).SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http api listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
