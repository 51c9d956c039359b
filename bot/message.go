package bot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"CineBot/core/conversation"
	"CineBot/core/media"
	"CineBot/core/selection"
	"CineBot/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// message 一条 Telegram 消息，实现 conversation.Conversation
type message struct {
	api       *tgbotapi.BotAPI
	prober    *media.Prober
	chatID    int64
	messageID int
}

func toMarkup(menu *selection.Menu) *tgbotapi.InlineKeyboardMarkup {
	if menu == nil || len(menu.Rows) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(menu.Rows))
	for _, row := range menu.Rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func (m *message) Edit(ctx context.Context, text string, menu *selection.Menu) error {
	edit := tgbotapi.NewEditMessageText(m.chatID, m.messageID, text)
	edit.ReplyMarkup = toMarkup(menu)
	_, err := m.api.Request(edit)
	return err
}

func (m *message) Reply(ctx context.Context, text string) (conversation.Conversation, error) {
	sent, err := m.api.Send(tgbotapi.NewMessage(m.chatID, text))
	if err != nil {
		return nil, err
	}
	return &message{api: m.api, prober: m.prober, chatID: m.chatID, messageID: sent.MessageID}, nil
}

func (m *message) SendVideo(ctx context.Context, path, caption string, progress func(current, total int64)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开视频失败: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	video := tgbotapi.NewVideo(m.chatID, tgbotapi.FileReader{
		Name:   filepath.Base(path),
		Reader: &countingReader{ctx: ctx, r: file, total: info.Size(), progress: progress},
	})
	video.Caption = caption
	video.SupportsStreaming = true
	if m.prober != nil {
		if info, err := m.prober.Probe(ctx, path); err == nil {
			video.Duration = int(info.Duration)
		} else {
			logger.Debug("读取视频信息失败", logger.String("path", path), logger.ErrorField(err))
		}
	}

	_, err = m.api.Send(video)
	return err
}

// countingReader 统计已读取字节数，用于上传进度
type countingReader struct {
	ctx      context.Context
	r        io.Reader
	read     int64
	total    int64
	progress func(current, total int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	c.read += int64(n)
	if n > 0 && c.progress != nil {
		c.progress(c.read, c.total)
	}
	return n, err
}
