package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"CineBot/config"
	"CineBot/core/conversation"
	"CineBot/core/media"
	"CineBot/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const msgUnauthorized = "You are not authorized to use this bot."

// Bot Telegram 前端，把更新分发给对话管理器
type Bot struct {
	api     *tgbotapi.BotAPI
	prober  *media.Prober
	manager *conversation.Manager
	cfg     *config.Config

	wg sync.WaitGroup
}

// New 连接 Bot API，TelegramAPIEndpoint 为空时使用官方地址
func New(cfg *config.Config, manager *conversation.Manager) (*Bot, error) {
	endpoint := tgbotapi.APIEndpoint
	if cfg.TelegramAPIEndpoint != "" {
		endpoint = strings.TrimRight(cfg.TelegramAPIEndpoint, "/") + "/bot%s/%s"
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("连接 Telegram 失败: %w", err)
	}
	logger.Info("Telegram 机器人已连接", logger.String("username", api.Self.UserName))
	return &Bot{api: api, prober: media.NewProber(cfg.FFmpegPath), manager: manager, cfg: cfg}, nil
}

// Run 接收更新直到 ctx 结束，每个更新在独立 goroutine 中处理
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func(update tgbotapi.Update) {
				defer b.wg.Done()
				b.dispatch(ctx, update)
			}(update)
		}
	}
}

// dispatch 单个更新的入口，panic 只影响当前更新
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("处理更新时发生 panic",
				logger.Int("updateId", update.UpdateID),
				logger.Any("panic", r),
				logger.String("stack", string(debug.Stack())))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	conv := b.message(msg.Chat.ID, msg.MessageID)
	req := conversation.Request{UserID: msg.From.ID, ChatID: msg.Chat.ID}

	if !b.cfg.IsAllowed(req.UserID) {
		logger.Warn("未授权用户", logger.Int64("userId", req.UserID), logger.String("command", msg.Command()))
		_, _ = conv.Reply(ctx, msgUnauthorized)
		return
	}

	switch msg.Command() {
	case "start", "help":
		b.manager.HandleStart(ctx, conv)
	case "dl":
		b.manager.HandleDownload(ctx, req, msg.CommandArguments(), conv)
	case "cancel":
		b.manager.HandleCancel(ctx, req, conv)
	case "history":
		b.manager.HandleHistory(ctx, req, conv)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	answer := func(ctx context.Context, text string, alert bool) error {
		cfg := tgbotapi.NewCallback(q.ID, text)
		cfg.ShowAlert = alert
		_, err := b.api.Request(cfg)
		return err
	}

	if q.From == nil || q.Message == nil {
		_ = answer(ctx, "", false)
		return
	}
	if !b.cfg.IsAllowed(q.From.ID) {
		_ = answer(ctx, msgUnauthorized, true)
		return
	}

	conv := b.message(q.Message.Chat.ID, q.Message.MessageID)
	req := conversation.Request{UserID: q.From.ID, ChatID: q.Message.Chat.ID}
	b.manager.HandleCallback(ctx, req, q.Data, conv, answer)
}

func (b *Bot) message(chatID int64, messageID int) *message {
	return &message{api: b.api, prober: b.prober, chatID: chatID, messageID: messageID}
}
