package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "padim-inspector/internal/application"
	"padim-inspector/internal/container"
	"padim-inspector/internal/domain/entity"
	"padim-inspector/internal/infrastructure/vision"
	"padim-inspector/internal/logging"
)

const (
	msgStart = `👋 Привет! Я бот для поиска аномалий на фотографиях деталей.

Я сравниваю снимок с эталонными «нормальными» изображениями и показываю, где он от них отличается.

📋 Команды:
/check — начать проверку детали
/status — последняя оценка
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте /check
2️⃣ Отправьте фото детали
3️⃣ Вы получите оценку аномальности и тепловую карту: красным отмечены подозрительные участки

💡 Рекомендации:
• Снимайте при хорошем освещении
• Кадрируйте так же, как эталонные снимки
• Фото должно быть чётким

📋 Команды:
/check — начать проверку
/cancel — отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото детали для проверки."
	msgCancelled       = "❌ Операция отменена. Отправьте /check для новой проверки."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото детали для проверки."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNotReady        = "⚠️ Модель ещё не обучена, проверка недоступна."
	msgNoChecks        = "Вы ещё не проверяли снимки. Отправьте /check."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
	msgCheckFirst      = "📸 Сначала отправьте /check, затем фото детали."
	msgPoorQuality     = "⚠️ Снимок не подходит для проверки: %s. Попробуйте сделать другое фото."
)

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	container *container.Container
	logger    *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger = logging.OrDefault(logger)
	logger.Info("authorized on account", "username", api.Self.UserName)

	return &Bot{
		api:       api,
		container: c,
		logger:    logger,
	}, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.container.UserService.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.logger.Error("get user", "user_id", msg.From.ID, "error", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg, user)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	users := b.container.UserService
	switch msg.Command() {
	case "start":
		b.logIfErr(users.Cancel(ctx, user.ID, user.ChatID))
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "check":
		if !b.container.InspectionService.Ready() {
			b.sendMessage(msg.Chat.ID, msgNotReady)
			return
		}
		b.logIfErr(users.BeginCheck(ctx, user.ID, user.ChatID))
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)

	case "status":
		b.sendMessage(msg.Chat.ID, formatStatus(user))

	case "cancel":
		b.logIfErr(users.Cancel(ctx, user.ID, user.ChatID))
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handlePhoto обрабатывает входящее фото
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	if !b.container.InspectionService.Ready() {
		b.sendMessage(msg.Chat.ID, msgNotReady)
		return
	}
	if user.State != entity.StateAwaitingPhoto {
		b.sendMessage(msg.Chat.ID, msgCheckFirst)
		return
	}
	b.sendMessage(msg.Chat.ID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.logger.Error("download photo", "file_id", photo.FileID, "error", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	out, err := b.container.InspectionService.Inspect(ctx, msg.From.ID, msg.Chat.ID, imageData)
	if err != nil {
		b.logger.Warn("inspect photo", "user_id", msg.From.ID, "error", err)
		b.sendMessage(msg.Chat.ID, errorText(err))
		return
	}

	caption := formatResult(out.Result)
	if len(out.Heatmap) == 0 {
		b.sendMessage(msg.Chat.ID, caption)
		return
	}
	b.sendPhoto(msg.Chat.ID, out.Heatmap, caption)
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("send message", "chat_id", chatID, "error", err)
	}
}

// sendPhoto отправляет JPEG с подписью
func (b *Bot) sendPhoto(chatID int64, data []byte, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "heatmap.jpg", Bytes: data})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error("send photo", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) logIfErr(_ *entity.User, err error) {
	if err != nil {
		b.logger.Error("update user state", "error", err)
	}
}

// formatResult собирает подпись к тепловой карте.
func formatResult(r *entity.InspectionResult) string {
	var sb strings.Builder
	switch {
	case !r.HasVerdict:
		// без порога показываем только оценку
	case r.IsAnomalous:
		sb.WriteString("🔴 Обнаружена аномалия.\n")
	default:
		sb.WriteString("🟢 Снимок похож на нормальные образцы.\n")
	}
	fmt.Fprintf(&sb, "Оценка аномальности: %.3f\n", r.Score)
	x, y, peak := r.Peak()
	fmt.Fprintf(&sb, "Максимум карты: %.3f в точке (%d, %d) из %dx%d", peak, x, y, r.ImageWidth, r.ImageHeight)
	return sb.String()
}

func formatStatus(u *entity.User) string {
	if u.Checks == 0 {
		return msgNoChecks
	}
	return fmt.Sprintf("Проверено снимков: %d\nПоследняя оценка: %.3f", u.Checks, u.LastScore)
}

// errorText переводит ошибку проверки в сообщение пользователю.
func errorText(err error) string {
	if errors.Is(err, app.ErrCheckNotStarted) {
		return msgCheckFirst
	}
	if errors.Is(err, vision.ErrPoorQuality) {
		reason := strings.TrimPrefix(err.Error(), vision.ErrPoorQuality.Error()+": ")
		return fmt.Sprintf(msgPoorQuality, reason)
	}
	return msgProcessingError
}
