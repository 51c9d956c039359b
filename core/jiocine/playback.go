package jiocine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"CineBot/logger"
	"CineBot/model"
)

type playbackRequest struct {
	FourK                    bool               `json:"4k"`
	AgeGroup                 string             `json:"ageGroup"`
	AppVersion               string             `json:"appVersion"`
	BitrateProfile           string             `json:"bitrateProfile"`
	Capability               playbackCapability `json:"capability"`
	ContinueWatchingRequired bool               `json:"continueWatchingRequired"`
	Dolby                    bool               `json:"dolby"`
	DownloadRequest          bool               `json:"downloadRequest"`
	HEVC                     bool               `json:"hevc"`
	KidsSafe                 bool               `json:"kidsSafe"`
	Manufacturer             string             `json:"manufacturer"`
	Model                    string             `json:"model"`
	MultiAudioRequired       bool               `json:"multiAudioRequired"`
	OSVersion                string             `json:"osVersion"`
	ParentalPinValid         bool               `json:"parentalPinValid"`
}

type playbackCapability struct {
	DRMCapability struct {
		AESSupport         string `json:"aesSupport"`
		FairPlaySupport    string `json:"fairPlayDrmSupport"`
		PlayreadySupport   string `json:"playreadyDrmSupport"`
		WidevineDRMSupport string `json:"widevineDRMSupport"`
	} `json:"drmCapability"`
}

type playbackResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		PlaybackURLs []struct {
			URL        string `json:"url"`
			StreamType string `json:"streamtype"`
			Encryption string `json:"encryption"`
			LicenseURL string `json:"licenseurl"`
		} `json:"playbackUrls"`
	} `json:"data"`
}

func newPlaybackRequest() playbackRequest {
	req := playbackRequest{
		AgeGroup:           "18+",
		AppVersion:         "3.4.0",
		BitrateProfile:     "xhdpi",
		Manufacturer:       "Windows",
		Model:              "Windows",
		MultiAudioRequired: true,
		OSVersion:          "10",
		ParentalPinValid:   true,
	}
	req.Capability.DRMCapability.AESSupport = "yes"
	req.Capability.DRMCapability.FairPlaySupport = "none"
	req.Capability.DRMCapability.PlayreadySupport = "none"
	req.Capability.DRMCapability.WidevineDRMSupport = "L1"
	return req
}

// FetchPlaybackData 获取播放描述列表，token 失效时返回错误
func (c *Client) FetchPlaybackData(ctx context.Context, contentID, token string) ([]model.PlaybackManifestRef, error) {
	endpoint := fmt.Sprintf("%s/%s", strings.TrimRight(c.playbackBaseURL, "/"), contentID)

	req, err := c.newRequest(ctx, http.MethodPost, endpoint, newPlaybackRequest())
	if err != nil {
		return nil, err
	}
	req.Header.Set("accesstoken", token)
	req.Header.Set("x-platform", "androidweb")
	req.Header.Set("x-platform-token", "web")

	body, err := c.do(req, "playback")
	if err != nil {
		return nil, err
	}

	var result playbackResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if result.Code != 0 {
		return nil, &APIError{Endpoint: "playback", StatusCode: http.StatusOK, Code: result.Code, Message: result.Message}
	}
	if len(result.Data.PlaybackURLs) == 0 {
		return nil, &APIError{Endpoint: "playback", StatusCode: http.StatusOK, Message: "empty playbackUrls"}
	}

	refs := make([]model.PlaybackManifestRef, 0, len(result.Data.PlaybackURLs))
	for _, u := range result.Data.PlaybackURLs {
		streamType := model.StreamTypeOther
		if strings.EqualFold(u.StreamType, string(model.StreamTypeDash)) {
			streamType = model.StreamTypeDash
		}
		refs = append(refs, model.PlaybackManifestRef{StreamType: streamType, URL: u.URL})
	}

	logger.Debug("获取播放数据成功", logger.String("contentId", contentID), logger.Int("urls", len(refs)))
	return refs, nil
}

// GetMPD 下载 manifest 原文，解析交给 mpd 包
func (c *Client) GetMPD(ctx context.Context, manifestURL, token string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("accesstoken", token)
	}
	return c.do(req, "manifest")
}
