package conversation

import (
	"context"

	"CineBot/core/selection"
)

// Conversation 一条可编辑的聊天消息，由具体的聊天前端实现
type Conversation interface {
	// Edit 修改消息文本和菜单，menu 为 nil 时移除按钮
	Edit(ctx context.Context, text string, menu *selection.Menu) error
	// Reply 在同一会话中发送新消息
	Reply(ctx context.Context, text string) (Conversation, error)
	// SendVideo 上传视频文件
	SendVideo(ctx context.Context, path, caption string, progress func(current, total int64)) error
}

// Answer 回应一次按钮点击，alert 为 true 时弹窗提示
type Answer func(ctx context.Context, text string, alert bool) error

// Request 一次用户输入的来源
type Request struct {
	UserID int64
	ChatID int64
}
