package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "dental-bot/internal/application"
	"dental-bot/internal/container"
	"dental-bot/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для предварительного анализа панорамных рентгеновских снимков.

🦷 Отправьте /check, затем ОПТГ, и я найду сломанные корни, пародонтально скомпрометированные зубы и определю класс дефекта зубного ряда по Кеннеди для каждой челюсти.

📋 Команды:
/check — начать анализ снимка
/history — последние результаты
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте панорамный снимок (лучше файлом, без сжатия)
2️⃣ Бот проанализирует изображение
3️⃣ Вы получите заключение и снимок с отмеченными находками

💡 Рекомендации:
• Отправляйте снимок целиком, без обрезки
• Форматы: PNG, JPG
• Результат не заменяет осмотр у врача

📋 Команды:
/check — начать анализ
/history — последние результаты
/cancel — отменить операцию`

	msgAwaitingPhoto   = "🦷 Отправьте панорамный снимок для анализа."
	msgCancelled       = "❌ Операция отменена. Отправьте /check для нового анализа."
	msgSendPhoto       = "🦷 Пожалуйста, отправьте панорамный снимок (фото или файл PNG/JPG)."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю снимок..."
	msgBusy            = "⏳ Предыдущий снимок ещё обрабатывается, подождите."
	msgCheckFirst      = "🦷 Чтобы начать анализ, отправьте /check, затем снимок."
	msgNoHistory       = "📭 Результатов пока нет."
	msgInputError      = "⚠️ Не удалось прочитать снимок. Попробуйте отправить его файлом PNG или JPG."
	msgProcessingError = "⚠️ Не удалось обработать снимок. Попробуйте позже."
	msgDisclaimer      = "Результат автоматический и требует подтверждения врачом."

	historyLimit = 5
)

// Bot представляет Telegram-бота
type Bot struct {
	api   *tgbotapi.BotAPI
	app   *container.Container
	log   *zap.Logger
	httpc *http.Client
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info("authorized on telegram", zap.String("account", api.Self.UserName))

	return &Bot{
		api:   api,
		app:   c,
		log:   log,
		httpc: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil {
			continue
		}

		b.handleMessage(ctx, update.Message)
	}

	return ctx.Err()
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	// посты каналов приходят без отправителя
	if msg.From == nil || msg.Chat == nil {
		return
	}

	user, err := b.app.UserService.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.log.Error("get user", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка снимка: сжатое фото или файл-изображение
	if fileID, ok := radiographFileID(msg); ok {
		switch user.State {
		case entity.StateAwaitingRadiograph:
			b.handleRadiograph(ctx, msg, fileID)
		case entity.StateProcessing:
			b.sendMessage(msg.Chat.ID, msgBusy)
		default:
			b.sendMessage(msg.Chat.ID, msgCheckFirst)
		}
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	switch msg.Command() {
	case "start":
		b.setState(ctx, user, entity.StateMainMenu)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "check":
		if _, err := b.app.UserService.BeginCheck(ctx, user.ID, user.ChatID); err != nil {
			b.log.Error("begin check", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)

	case "cancel":
		if _, err := b.app.UserService.Cancel(ctx, user.ID, user.ChatID); err != nil {
			b.log.Error("cancel", zap.Int64("user_id", user.ID), zap.Error(err))
		}
		b.sendMessage(msg.Chat.ID, msgCancelled)

	case "history":
		b.handleHistory(ctx, msg)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handleRadiograph скачивает снимок, запускает обследование и отправляет результат
func (b *Bot) handleRadiograph(ctx context.Context, msg *tgbotapi.Message, fileID string) {
	b.sendMessage(msg.Chat.ID, msgProcessing)

	imageData, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.log.Warn("download radiograph", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgInputError)
		return
	}

	out, err := b.app.ExaminationService.ProcessRadiograph(ctx, msg.From.ID, msg.Chat.ID, imageData)
	switch {
	case errors.Is(err, app.ErrUserBusy):
		b.sendMessage(msg.Chat.ID, msgBusy)
		return
	case errors.Is(err, app.ErrNotAwaiting):
		b.sendMessage(msg.Chat.ID, msgCheckFirst)
		return
	case errors.Is(err, app.ErrInputAcquisition):
		b.log.Warn("examine radiograph", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgInputError)
		return
	case err != nil:
		b.log.Error("examine radiograph", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	b.sendMessage(msg.Chat.ID, FormatExamination(out.Examination))
	if len(out.Annotated) > 0 {
		b.sendPhoto(msg.Chat.ID, out.Annotated, fmt.Sprintf("Находок: %d", len(out.Examination.Detections)))
	}
}

// handleHistory отправляет последние заключения пользователя
func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	exams, err := b.app.ExaminationService.History(ctx, msg.From.ID, historyLimit)
	if err != nil {
		b.log.Error("history", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}
	if len(exams) == 0 {
		b.sendMessage(msg.Chat.ID, msgNoHistory)
		return
	}
	b.sendMessage(msg.Chat.ID, FormatHistory(exams))
}

// FormatExamination форматирует заключение для отправки в чат
func FormatExamination(exam *entity.Examination) string {
	var sb strings.Builder
	sb.WriteString("🦷 Заключение:\n")
	for _, s := range exam.Report.Statements() {
		sb.WriteString("• ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	if exam.Explanation != nil && exam.Explanation.Text != "" {
		sb.WriteString("\n💬 ")
		sb.WriteString(exam.Explanation.Text)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(msgDisclaimer)
	return sb.String()
}

// FormatHistory форматирует список заключений
func FormatHistory(exams []*entity.Examination) string {
	var sb strings.Builder
	sb.WriteString("🗂 Последние результаты:\n")
	for _, exam := range exams {
		fmt.Fprintf(&sb, "\n%s\n", exam.CreatedAt.Format("02.01.2006 15:04"))
		for _, s := range exam.Report.Statements() {
			sb.WriteString("• ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// radiographFileID возвращает файл снимка: фото в максимальном разрешении или документ-изображение
func radiographFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := b.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

func (b *Bot) setState(ctx context.Context, user *entity.User, state entity.UserState) {
	if _, err := b.app.UserService.SetState(ctx, user.ID, user.ChatID, state); err != nil {
		b.log.Error("set state", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendPhoto отправляет картинку с подписью
func (b *Bot) sendPhoto(chatID int64, data []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "radiograph.jpg", Bytes: data})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		b.log.Warn("send photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
