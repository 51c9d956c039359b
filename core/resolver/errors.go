package resolver

import (
	"errors"
	"fmt"
)

// Reason 解析失败的原因
type Reason string

const (
	ReasonNotFound       Reason = "not_found"
	ReasonAuthFailed     Reason = "auth_failed"
	ReasonNoPlayback     Reason = "no_playback"
	ReasonNoDashManifest Reason = "no_dash_manifest"
)

var (
	ErrNotFound       = errors.New("content not found")
	ErrAuthFailed     = errors.New("failed to obtain a guest token")
	ErrNoPlayback     = errors.New("no playback data")
	ErrNoDashManifest = errors.New("no DASH manifest")

	// ErrInvalidURL 链接不包含平台域名或缺少内容 ID
	ErrInvalidURL = errors.New("invalid content url")
)

var sentinels = map[Reason]error{
	ReasonNotFound:       ErrNotFound,
	ReasonAuthFailed:     ErrAuthFailed,
	ReasonNoPlayback:     ErrNoPlayback,
	ReasonNoDashManifest: ErrNoDashManifest,
}

// ResolveError 内容解析错误
type ResolveError struct {
	Reason    Reason
	ContentID string
	Err       error
}

func (e *ResolveError) Error() string {
	msg := fmt.Sprintf("resolve %s: %s", e.ContentID, sentinels[e.Reason])
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap 同时暴露原因哨兵和底层错误
func (e *ResolveError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if s, ok := sentinels[e.Reason]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage 面向用户的简短描述
func (e *ResolveError) UserMessage() string {
	switch e.Reason {
	case ReasonNotFound:
		return "Content not found."
	case ReasonAuthFailed:
		return "Could not authenticate with the platform, try again later."
	case ReasonNoPlayback:
		return "No playback data available for this content."
	case ReasonNoDashManifest:
		return "No DASH manifest found for this content."
	default:
		return "Could not resolve this content."
	}
}

func newError(reason Reason, contentID string, err error) *ResolveError {
	return &ResolveError{Reason: reason, ContentID: contentID, Err: err}
}
