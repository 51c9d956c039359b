package selection

import (
	"fmt"

	"CineBot/model"
)

const (
	qualityMenuText = "Select Video Quality:"
	audioMenuText   = "Select Audio Track(s):\nYou can select multiple audio tracks ✅"
)

// Button 一个内联按钮
type Button struct {
	Text string
	Data string
}

// Menu 与传输层无关的菜单描述
type Menu struct {
	Text string
	Rows [][]Button
}

// TrackLabel 音轨展示文案
func TrackLabel(t model.AudioTrack) string {
	return fmt.Sprintf("%s (%s %s %dkbps)", t.Language, t.Codec, t.ChannelLabel(), t.BitrateKbps)
}

// QualityMenu 每个清晰度一行
func QualityMenu(s *model.UserSession) *Menu {
	menu := &Menu{Text: qualityMenuText}
	for _, q := range s.Qualities {
		menu.Rows = append(menu.Rows, []Button{{
			Text: q.Label(),
			Data: QualityAction{Height: q.Height, Bitrate: q.BitrateMbps}.Encode(),
		}})
	}
	return menu
}

// AudioMenu 每条音轨一行，有选中项时末尾追加开始下载按钮
func AudioMenu(s *model.UserSession) *Menu {
	menu := &Menu{Text: audioMenuText}
	for _, t := range s.AudioTracks {
		mark := "☐"
		if s.IsAudioSelected(t.ID) {
			mark = "✅"
		}
		menu.Rows = append(menu.Rows, []Button{{
			Text: mark + " " + TrackLabel(t),
			Data: ToggleAudioAction{TrackID: t.ID}.Encode(),
		}})
	}
	if n := len(s.SelectedAudioIDs); n > 0 {
		menu.Rows = append(menu.Rows, []Button{{
			Text: fmt.Sprintf("Start Download (%d Audio Tracks)", n),
			Data: ConfirmAction{}.Encode(),
		}})
	}
	return menu
}
