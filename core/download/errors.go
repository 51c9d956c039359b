package download

import (
	"errors"
	"fmt"
)

// Reason 下载失败原因
type Reason string

const (
	ReasonIncompleteSelection Reason = "incomplete_selection"
	ReasonPipelineFailed      Reason = "pipeline_failed"
	ReasonDeliveryFailed      Reason = "delivery_failed"
)

var (
	ErrIncompleteSelection = errors.New("selection is incomplete")
	ErrPipelineFailed      = errors.New("download pipeline failed")
	ErrDeliveryFailed      = errors.New("delivery failed")
)

// DownloadError 下载编排错误，底层原因只记录日志，不直接展示给用户
type DownloadError struct {
	Reason Reason
	Err    error
}

func (e *DownloadError) Error() string {
	msg := string(e.Reason)
	if s := e.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DownloadError) sentinel() error {
	switch e.Reason {
	case ReasonIncompleteSelection:
		return ErrIncompleteSelection
	case ReasonPipelineFailed:
		return ErrPipelineFailed
	case ReasonDeliveryFailed:
		return ErrDeliveryFailed
	}
	return nil
}

func (e *DownloadError) Unwrap() []error {
	var errs []error
	if s := e.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
