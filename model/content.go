package model

import "strings"

// ContentRef 用户链接中提取的内容标识（URL 最后一段）
type ContentRef struct {
	ID string `json:"id"`
}

// ContentMetadata 内容展示信息
type ContentMetadata struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SafeTitle 返回可用作文件名片段的标题
func (m ContentMetadata) SafeTitle() string {
	title := strings.TrimSpace(m.Title)
	if title == "" {
		title = "video"
	}
	title = strings.ReplaceAll(title, " ", ".")
	return strings.ReplaceAll(title, "/", "-")
}

// StreamType 播放描述的流类型
type StreamType string

const (
	StreamTypeDash  StreamType = "dash"
	StreamTypeOther StreamType = "other"
)

// PlaybackManifestRef 平台返回的一个播放描述，只有 dash 可用
type PlaybackManifestRef struct {
	StreamType StreamType `json:"streamType"`
	URL        string     `json:"url"`
}
