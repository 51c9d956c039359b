package model

import (
	"fmt"
	"strconv"
)

// Quality 一个可选的视频清晰度
// 清晰度按 (Height, BitrateMbps) 绑定，而不是下标，重复项保留
type Quality struct {
	Height      int     `json:"height"`
	BitrateMbps float64 `json:"bitrateMbps"`
}

// BitrateString 码率固定保留一位小数，回调数据和按钮文案共用
func (q Quality) BitrateString() string {
	return strconv.FormatFloat(q.BitrateMbps, 'f', 1, 64)
}

// Label 按钮文案，如 "1080p (6.0 Mbps)"
func (q Quality) Label() string {
	return fmt.Sprintf("%dp (%s Mbps)", q.Height, q.BitrateString())
}

// Matches 判断是否是同一个 (height, bitrate) 组合
func (q Quality) Matches(height int, bitrate float64) bool {
	return q.Height == height && q.BitrateString() == strconv.FormatFloat(bitrate, 'f', 1, 64)
}

// AudioTrack 一条可选音轨（对应一个 audio AdaptationSet）
type AudioTrack struct {
	ID          string `json:"id"`
	FormatID    string `json:"formatId"` // yt-dlp 用 Representation id 命名格式
	Language    string `json:"language"`
	Channels    int    `json:"channels"`
	Codec       string `json:"codec"`
	BitrateKbps int    `json:"bitrateKbps"`
}

// ChannelLabel 2 声道及以下显示 2.0，其余显示 N.1
func (t AudioTrack) ChannelLabel() string {
	if t.Channels > 2 {
		return fmt.Sprintf("%d.1", t.Channels)
	}
	return "2.0"
}
