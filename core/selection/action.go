package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	qualityPrefix = "quality_"
	audioPrefix   = "audio_"
	confirmData   = "done"
)

// ErrUnknownAction 无法识别的回调数据
var ErrUnknownAction = errors.New("unknown callback action")

// Action 按钮回调动作
type Action interface {
	Encode() string
}

// QualityAction 选择清晰度
type QualityAction struct {
	Height  int
	Bitrate float64
}

// Encode quality_<height>_<bitrate>
func (a QualityAction) Encode() string {
	return fmt.Sprintf("%s%d_%s", qualityPrefix, a.Height, strconv.FormatFloat(a.Bitrate, 'f', 1, 64))
}

// ToggleAudioAction 勾选或取消一条音轨
type ToggleAudioAction struct {
	TrackID string
}

// Encode audio_<id>，id 中可以包含下划线
func (a ToggleAudioAction) Encode() string {
	return audioPrefix + a.TrackID
}

// ConfirmAction 确认开始下载
type ConfirmAction struct{}

func (ConfirmAction) Encode() string {
	return confirmData
}

// Decode 解析回调数据
func Decode(data string) (Action, error) {
	switch {
	case data == confirmData:
		return ConfirmAction{}, nil

	case strings.HasPrefix(data, qualityPrefix):
		parts := strings.SplitN(strings.TrimPrefix(data, qualityPrefix), "_", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAction, data)
		}
		height, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("%w: bad height in %q", ErrUnknownAction, data)
		}
		bitrate, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad bitrate in %q", ErrUnknownAction, data)
		}
		return QualityAction{Height: height, Bitrate: bitrate}, nil

	case strings.HasPrefix(data, audioPrefix):
		id := strings.TrimPrefix(data, audioPrefix)
		if id == "" {
			return nil, fmt.Errorf("%w: empty track id", ErrUnknownAction)
		}
		return ToggleAudioAction{TrackID: id}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, data)
}
