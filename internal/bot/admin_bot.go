package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"banana_clicker/internal/domain"
	"banana_clicker/internal/game"
	"banana_clicker/internal/logger"
	"banana_clicker/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Engine is the subset of the progress service the bot drives.
type Engine interface {
	StartGlobalEvent(ctx context.Context, kind string, multiplier float64, duration time.Duration) (service.EventReport, error)
	State(ctx context.Context, userID int64) (*domain.UserProgress, error)
}

// SweepControl triggers sweeps and reports on them.
type SweepControl interface {
	SweepNow(ctx context.Context) (service.SweepReport, error)
	LastReport() (service.SweepReport, int64)
	Running() bool
}

// AdminBot handles admin commands via Telegram
type AdminBot struct {
	bot      *tgbotapi.BotAPI
	engine   Engine
	sweeps   SweepControl
	audit    *service.AuditService
	adminIDs []int64 // Telegram user IDs who can use admin commands
	stopCh   chan struct{}
	wg       sync.WaitGroup
	log      *slog.Logger
}

// NewAdminBot creates a new admin bot
func NewAdminBot(token string, engine Engine, sweeps SweepControl, audit *service.AuditService, adminIDs []int64) (*AdminBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newAdminBot(engine, sweeps, adminIDs)
	b.bot = bot
	b.audit = audit
	b.log.Info("admin bot authorized", "username", bot.Self.UserName)
	return b, nil
}

func newAdminBot(engine Engine, sweeps SweepControl, adminIDs []int64) *AdminBot {
	return &AdminBot{
		engine:   engine,
		sweeps:   sweeps,
		adminIDs: adminIDs,
		stopCh:   make(chan struct{}),
		log:      logger.With("component", "admin_bot"),
	}
}

// Start starts listening for commands
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}

			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if !b.isAdmin(update.Message.From.ID) {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop gracefully stops the bot
func (b *AdminBot) Stop() {
	b.log.Info("stopping admin bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	// Wait for pending handlers with timeout
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b.log.Info("admin command", "admin_id", msg.From.ID, "command", msg.Command())
	response := b.respond(ctx, msg.From.ID, msg.Command(), msg.CommandArguments())

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

// respond builds the reply text for a command.
func (b *AdminBot) respond(ctx context.Context, adminID int64, command, args string) string {
	switch command {
	case "start", "help":
		return b.helpMessage()
	case "event":
		return b.handleEvent(ctx, adminID, args)
	case "sweep":
		return b.handleSweep(ctx, adminID)
	case "stats":
		return b.handleStats()
	case "user":
		return b.handleUser(ctx, args)
	default:
		return "❌ Неизвестная команда. Используйте /help для списка команд."
	}
}

func (b *AdminBot) helpMessage() string {
	return `<b>🍌 Команды администратора</b>

<b>🎉 События:</b>
/event &lt;kind&gt; &lt;множитель&gt; &lt;длительность&gt; - Запустить глобальное событие (пример: /event weekend 2 30m)

<b>⚙️ Обслуживание:</b>
/sweep - Начислить офлайн-доход всем игрокам сейчас
/stats - Статистика последнего прохода

<b>👤 Игроки:</b>
/user &lt;id&gt; - Прогресс игрока`
}

func (b *AdminBot) handleEvent(ctx context.Context, adminID int64, args string) string {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		return "❌ Использование: /event <kind> <множитель> <длительность>"
	}

	multiplier, duration, err := game.ParseEventArgs(parts[1], parts[2])
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}

	rep, err := b.engine.StartGlobalEvent(ctx, parts[0], multiplier, duration)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	b.audit.LogAdminAction(ctx, adminID, domain.AuditActionGlobalEventStart, map[string]any{
		"kind":       rep.Event.Kind,
		"multiplier": rep.Event.Multiplier,
		"expires_at": rep.Event.ExpiresAt,
		"users":      rep.Users,
		"failed":     rep.Failed,
		"source":     "bot",
	})

	return fmt.Sprintf(`✅ <b>Событие запущено</b>

• Тип: %s
• Множитель: x%g
• До: %s
• Игроков обновлено: %d из %d
• Ошибок: %d`,
		rep.Event.Kind,
		rep.Event.Multiplier,
		rep.Event.ExpiresAt.Format("02.01.2006 15:04:05 MST"),
		rep.Updated,
		rep.Users,
		rep.Failed,
	)
}

func (b *AdminBot) handleSweep(ctx context.Context, adminID int64) string {
	rep, err := b.sweeps.SweepNow(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	b.audit.LogAdminAction(ctx, adminID, domain.AuditActionManualSweep, map[string]any{
		"users":   rep.Users,
		"updated": rep.Updated,
		"failed":  rep.Failed,
		"source":  "bot",
	})
	return "✅ " + formatSweep(rep)
}

func (b *AdminBot) handleStats() string {
	rep, runs := b.sweeps.LastReport()
	state := "ожидает"
	if b.sweeps.Running() {
		state = "выполняется"
	}
	return fmt.Sprintf(`<b>📊 Статистика</b>

• Проходов выполнено: %d
• Сейчас: %s

<b>Последний проход:</b>
%s`, runs, state, formatSweep(rep))
}

func (b *AdminBot) handleUser(ctx context.Context, args string) string {
	userID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return "❌ Использование: /user <id>"
	}

	p, err := b.engine.State(ctx, userID)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}

	boost := "нет"
	if p.PersonalBoost != nil {
		boost = fmt.Sprintf("%s x%g до %s", p.PersonalBoost.Kind, p.PersonalBoost.Multiplier, p.PersonalBoost.ExpiresAt.Format("15:04:05"))
	}

	return fmt.Sprintf(`<b>👤 Игрок %d</b>

• 🍌 Баланс: %d
• За клик: %d
• В секунду: %d
• Престиж: %d
• Буст: %s
• Инвентарь: gold %d, diamond %d`,
		p.UserID,
		p.Balance,
		p.PerActionRate,
		p.PerIntervalRate,
		p.PrestigeCount,
		boost,
		p.Inventory[domain.BoostGold],
		p.Inventory[domain.BoostDiamond],
	)
}

func formatSweep(rep service.SweepReport) string {
	return fmt.Sprintf(`• Игроков: %d
• Обновлено: %d
• Без изменений: %d
• Ошибок: %d
• Начислено: %d
• Время: %s`,
		rep.Users,
		rep.Updated,
		rep.Idle,
		rep.Failed,
		rep.Accrued,
		rep.Duration.Round(time.Millisecond),
	)
}
