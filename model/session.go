package model

import "time"

// SessionState 选择流程所处阶段
type SessionState string

const (
	StateAwaitingQuality SessionState = "awaiting_quality"
	StateAwaitingAudio   SessionState = "awaiting_audio"
	StateReadyToDownload SessionState = "ready_to_download"
)

// UserSession 一个用户当前进行中的选择会话
type UserSession struct {
	ID     string `json:"id"` // 每次 /dl 生成新的 ID，用于识别过期回调和下载
	UserID int64  `json:"userId"`
	ChatID int64  `json:"chatId"`

	State     SessionState        `json:"state"`
	ContentID string              `json:"contentId"`
	Content   ContentMetadata     `json:"content"`
	Manifest  PlaybackManifestRef `json:"manifest"`

	Qualities   []Quality    `json:"qualities"`
	AudioTracks []AudioTrack `json:"audioTracks"`

	// SelectedQuality 同时记录选中的高度和码率
	SelectedQuality  *Quality `json:"selectedQuality,omitempty"`
	SelectedAudioIDs []string `json:"selectedAudioIds"`
	AuthToken        string   `json:"authToken,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone 深拷贝，存储层返回副本避免共享切片
func (s *UserSession) Clone() *UserSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Qualities = append([]Quality(nil), s.Qualities...)
	c.AudioTracks = append([]AudioTrack(nil), s.AudioTracks...)
	c.SelectedAudioIDs = append([]string(nil), s.SelectedAudioIDs...)
	if s.SelectedQuality != nil {
		q := *s.SelectedQuality
		c.SelectedQuality = &q
	}
	return &c
}

// Track 按 ID 查找音轨
func (s *UserSession) Track(id string) (AudioTrack, bool) {
	for _, t := range s.AudioTracks {
		if t.ID == id {
			return t, true
		}
	}
	return AudioTrack{}, false
}

// IsAudioSelected 判断音轨是否已选中
func (s *UserSession) IsAudioSelected(id string) bool {
	for _, selected := range s.SelectedAudioIDs {
		if selected == id {
			return true
		}
	}
	return false
}

// SelectedLanguages 按音轨列表顺序返回已选音轨的语言名
func (s *UserSession) SelectedLanguages() []string {
	var langs []string
	for _, t := range s.AudioTracks {
		if s.IsAudioSelected(t.ID) {
			langs = append(langs, t.Language)
		}
	}
	return langs
}
