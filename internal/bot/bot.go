package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/model"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/planner"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/repository"
	"github.com/Trqquocc/Schedule-With-AI-sub000/internal/service"
)

const (
	cbConfirmPrefix = "confirm:"
	cbCancelPrefix  = "cancel:"

	btnConfirm = "✅ Lưu vào lịch"
	btnCancel  = "↩️ Bỏ qua"

	defaultPlanDays = 7
	maxShownSlots   = 15
)

// Bot exposes the scheduling pipeline over Telegram.
type Bot struct {
	api      *tgbotapi.BotAPI
	userRepo *repository.UserRepository
	taskRepo *repository.TaskRepository
	plans    *service.PlanService
	log      *zap.SugaredLogger

	// awaiting holds users who sent /goiy without an instruction and owe
	// us one more message.
	awaiting map[int64]bool
	mu       sync.Mutex
}

func New(token string, userRepo *repository.UserRepository, taskRepo *repository.TaskRepository, plans *service.PlanService, log *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	log.Infow("bot authorized", "account", api.Self.UserName)

	return &Bot{
		api:      api,
		userRepo: userRepo,
		taskRepo: taskRepo,
		plans:    plans,
		log:      log,
		awaiting: make(map[int64]bool),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Infow("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Warnw("handle callback", "error", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Warnw("handle message", "error", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if msg.IsCommand() {
		b.log.Infow("command", "from", msg.From.ID, "command", msg.Command())
		return b.handleCommand(ctx, msg)
	}

	if b.takeAwaiting(msg.From.ID) {
		return b.runSuggestion(ctx, msg, strings.TrimSpace(msg.Text))
	}

	return b.sendText(msg.Chat.ID, "Mình chưa hiểu tin nhắn này. Dùng /goiy để nhờ xếp lịch, hoặc /help để xem các lệnh.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "goiy":
		instruction := strings.TrimSpace(msg.CommandArguments())
		if instruction == "" {
			b.setAwaiting(msg.From.ID)
			return b.sendText(msg.Chat.ID, "📝 Bạn muốn xếp lịch thế nào? Ví dụ: <i>tập gym 6h sáng mỗi ngày từ T2 đến T6</i>.\nGửi mô tả trống cũng được, mình sẽ tự xếp các việc vào giờ trống.")
		}
		return b.runSuggestion(ctx, msg, instruction)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "lich":
		return b.handleListEvents(ctx, msg)
	case "cancel":
		b.clearAwaiting(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Đã huỷ yêu cầu xếp lịch.")
	default:
		return b.sendText(msg.Chat.ID, "Lệnh không được hỗ trợ. Xem /help nhé.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "bạn"
	}

	text := fmt.Sprintf(
		"👋 Chào %s!\n<b>Mình là trợ lý xếp lịch: mô tả thói quen của bạn, mình sẽ đề xuất lịch cụ thể.</b>\n\nLệnh:\n"+
			"• /goiy &lt;mô tả&gt; — nhờ AI xếp lịch cho các việc đang chờ\n"+
			"• /tasks — xem các việc đang chờ xếp\n"+
			"• /lich — xem lịch 7 ngày tới\n"+
			"• /cancel — huỷ yêu cầu đang nhập\n"+
			"• /help — trợ giúp",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Trợ giúp</b>\n" +
		"• /goiy tập gym 6h sáng mỗi ngày — tạo lịch lặp lại theo mô tả\n" +
		"• /goiy (không kèm mô tả) — mình sẽ hỏi, hoặc tự xếp việc vào giờ trống\n" +
		"• Sau khi xem đề xuất, bấm «" + btnConfirm + "» để lưu vào lịch\n" +
		"• /tasks — các việc chưa hoàn thành\n" +
		"• /lich — lịch 7 ngày tới"
	return b.sendText(msg.Chat.ID, text)
}

// runSuggestion executes the pipeline over the coming week and replies with
// the proposed slots plus a confirm keyboard.
func (b *Bot) runSuggestion(ctx context.Context, msg *tgbotapi.Message, instruction string) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	now := time.Now().In(user.Location())
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, user.Location()).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, defaultPlanDays-1)

	outcome, err := b.plans.SuggestSchedule(ctx, user, instruction, start, end, planner.Options{
		AvoidConflict:    true,
		ConsiderPriority: true,
	})
	if err != nil {
		b.log.Errorw("suggest schedule", "user", user.ID, "error", err)
		return b.sendText(msg.Chat.ID, "Không tạo được đề xuất, thử lại sau nhé.")
	}

	if len(outcome.Result.Suggestions) == 0 {
		return b.sendText(msg.Chat.ID, escape(outcome.Result.Summary))
	}

	var sb strings.Builder
	sb.WriteString("📅 <b>Đề xuất lịch</b>\n")
	sb.WriteString(escape(outcome.Result.Summary))
	sb.WriteString("\n\n")
	for i, sg := range outcome.Result.Suggestions {
		if i == maxShownSlots {
			fmt.Fprintf(&sb, "… và %d khung giờ nữa\n", len(outcome.Result.Suggestions)-maxShownSlots)
			break
		}
		icon := "🕒"
		if sg.IsRecurring {
			icon = "♻️"
		}
		fmt.Fprintf(&sb, "%s <b>%s</b> — %s (%d phút)\n",
			icon, escape(sg.Title), sg.SuggestedTime.In(user.Location()).Format("Mon 02/01 15:04"), sg.DurationMinutes)
		if sg.HasConflict {
			sb.WriteString("   ⚠️ có thể trùng với lịch hiện có\n")
		}
		if sg.Reason != "" {
			fmt.Fprintf(&sb, "   💡 %s\n", escape(sg.Reason))
		}
	}
	if outcome.Result.Simulated {
		sb.WriteString("\n<i>Đề xuất được tính cục bộ (không dùng AI).</i>")
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, strings.TrimSpace(sb.String()))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnConfirm, cbConfirmPrefix+outcome.BatchID),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, cbCancelPrefix+outcome.BatchID),
		),
	)
	_, err = b.api.Send(reply)
	return err
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	tasks, err := b.taskRepo.ListSchedulable(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Không lấy được danh sách việc: %s", escape(err.Error())))
	}
	if len(tasks) == 0 {
		return b.sendText(msg.Chat.ID, "Bạn không có việc nào đang chờ. 🎉")
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Việc đang chờ xếp lịch</b>\n")
	for _, task := range tasks {
		fmt.Fprintf(&sb, "%s <b>#%d</b> %s — %d phút\n",
			priorityIcon(task.Priority), task.ID, escape(task.Title), estimatedMinutes(task))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleListEvents(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	events, err := b.plans.UpcomingEvents(ctx, user, defaultPlanDays)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Không lấy được lịch: %s", escape(err.Error())))
	}
	if len(events) == 0 {
		return b.sendText(msg.Chat.ID, "Lịch 7 ngày tới đang trống. Dùng /goiy để xếp việc nhé.")
	}

	loc := user.Location()
	var sb strings.Builder
	sb.WriteString("🗓 <b>Lịch 7 ngày tới</b>\n")
	day := ""
	for _, ev := range events {
		d := ev.StartTime.In(loc).Format("Mon 02/01")
		if d != day {
			day = d
			fmt.Fprintf(&sb, "\n<b>%s</b>\n", d)
		}
		icon := "🕒"
		if ev.Source == model.EventSourceAI {
			icon = "🤖"
		}
		fmt.Fprintf(&sb, "%s %s–%s %s\n",
			icon, ev.StartTime.In(loc).Format("15:04"), ev.EndTime.In(loc).Format("15:04"), escape(ev.Title))
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(sb.String()))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warnw("callback ack", "error", err)
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, cbConfirmPrefix):
		return b.confirmBatch(ctx, cb.Message.Chat.ID, cb.From, strings.TrimPrefix(data, cbConfirmPrefix))
	case strings.HasPrefix(data, cbCancelPrefix):
		return b.sendText(cb.Message.Chat.ID, "Đã bỏ qua đề xuất. Khi nào cần cứ gọi /goiy.")
	default:
		return nil
	}
}

func (b *Bot) confirmBatch(ctx context.Context, chatID int64, from *tgbotapi.User, batchID string) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	created, err := b.plans.Confirm(ctx, user, batchID)
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		return b.sendText(chatID, "Đề xuất này đã được lưu hoặc đã hết hạn.")
	case errors.Is(err, service.ErrDuplicateConfirm):
		return b.sendText(chatID, "Đề xuất này vừa được lưu rồi, không lưu lại nữa.")
	case err != nil:
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.sendText(chatID, "Đề xuất này không còn tồn tại.")
		}
		b.log.Errorw("confirm batch", "user", user.ID, "batch", batchID, "error", err)
		return b.sendText(chatID, "Không lưu được lịch, thử lại sau nhé.")
	}

	b.log.Infow("batch confirmed via bot", "user", user.ID, "batch", batchID, "events", created)
	return b.sendText(chatID, fmt.Sprintf("✅ Đã lưu %d khung giờ vào lịch. Xem lại bằng /lich.", created))
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) setAwaiting(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.awaiting[userID] = true
}

// takeAwaiting reports and clears the awaiting flag in one step.
func (b *Bot) takeAwaiting(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ok := b.awaiting[userID]
	delete(b.awaiting, userID)
	return ok
}

func (b *Bot) clearAwaiting(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.awaiting, userID)
}

func priorityIcon(priority int) string {
	switch priority {
	case 4:
		return "🔴"
	case 3:
		return "🟠"
	case 2:
		return "🔵"
	default:
		return "⚪"
	}
}

func estimatedMinutes(task model.Task) int {
	if task.EstimatedMinutes <= 0 {
		return 60
	}
	return task.EstimatedMinutes
}

func escape(s string) string {
	return html.EscapeString(s)
}
