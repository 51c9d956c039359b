package selection

import (
	"errors"
	"fmt"

	"CineBot/model"
)

// Reason 校验失败原因
type Reason string

const (
	ReasonNoAudioSelected     Reason = "no_audio_selected"
	ReasonIncompleteSelection Reason = "incomplete_selection"
	ReasonInvalidTransition   Reason = "invalid_transition"
	ReasonUnknownQuality      Reason = "unknown_quality"
	ReasonUnknownAudioTrack   Reason = "unknown_audio_track"
)

// ErrValidation 所有 ValidationError 都匹配该哨兵
var ErrValidation = errors.New("selection rejected")

// ValidationError 选择操作被拒绝，会话保持不变
type ValidationError struct {
	Reason Reason
	State  model.SessionState
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("selection rejected: %s (state=%s)", e.Reason, e.State)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Alert 回调提示文案
func (e *ValidationError) Alert() string {
	switch e.Reason {
	case ReasonNoAudioSelected:
		return "Please select at least one audio track!"
	case ReasonUnknownQuality:
		return "This quality is no longer available."
	case ReasonUnknownAudioTrack:
		return "This audio track is no longer available."
	case ReasonIncompleteSelection:
		return "Please select a quality and audio tracks first."
	default:
		return "This option has expired, send /dl again."
	}
}

func reject(s *model.UserSession, reason Reason) error {
	return &ValidationError{Reason: reason, State: s.State}
}

// SelectQuality 选择清晰度并进入音轨选择
func SelectQuality(s *model.UserSession, height int, bitrate float64) (*Menu, error) {
	if s.State != model.StateAwaitingQuality {
		return nil, reject(s, ReasonInvalidTransition)
	}

	for _, q := range s.Qualities {
		if q.Matches(height, bitrate) {
			selected := q
			s.SelectedQuality = &selected
			s.SelectedAudioIDs = nil
			s.State = model.StateAwaitingAudio
			return AudioMenu(s), nil
		}
	}
	return nil, reject(s, ReasonUnknownQuality)
}

// ToggleAudio 勾选或取消音轨，重复两次等于没有操作
func ToggleAudio(s *model.UserSession, trackID string) (*Menu, error) {
	if s.State != model.StateAwaitingAudio {
		return nil, reject(s, ReasonInvalidTransition)
	}
	if _, ok := s.Track(trackID); !ok {
		return nil, reject(s, ReasonUnknownAudioTrack)
	}

	for i, id := range s.SelectedAudioIDs {
		if id == trackID {
			s.SelectedAudioIDs = append(s.SelectedAudioIDs[:i:i], s.SelectedAudioIDs[i+1:]...)
			return AudioMenu(s), nil
		}
	}
	s.SelectedAudioIDs = append(s.SelectedAudioIDs, trackID)
	return AudioMenu(s), nil
}

// Confirm 确认选择，没有选音轨时拒绝且不改变状态
func Confirm(s *model.UserSession) error {
	if len(s.SelectedAudioIDs) == 0 {
		return reject(s, ReasonNoAudioSelected)
	}
	if s.State != model.StateAwaitingAudio {
		return reject(s, ReasonInvalidTransition)
	}
	if s.SelectedQuality == nil {
		return reject(s, ReasonIncompleteSelection)
	}
	s.State = model.StateReadyToDownload
	return nil
}
