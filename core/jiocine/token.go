package jiocine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"CineBot/logger"

	"github.com/google/uuid"
)

type guestTokenRequest struct {
	AppName     string `json:"appName"`
	DeviceType  string `json:"deviceType"`
	OS          string `json:"os"`
	DeviceID    string `json:"deviceId"`
	FreshLaunch bool   `json:"freshLaunch"`
	AdID        string `json:"adId"`
	AppVersion  string `json:"appVersion"`
}

type guestTokenResponse struct {
	AuthToken string `json:"authToken"`
	UserID    string `json:"userId"`
}

// FetchGuestToken 申请一个新的 guest token，每次使用新的设备 ID
func (c *Client) FetchGuestToken(ctx context.Context) (string, error) {
	endpoint := strings.TrimRight(c.authBaseURL, "/") + "/guest"

	payload := guestTokenRequest{
		AppName:     "RJIL_JioCinema",
		DeviceType:  "phone",
		OS:          "ios",
		DeviceID:    uuid.NewString(),
		FreshLaunch: false,
		AdID:        uuid.NewString(),
		AppVersion:  "5.6.0",
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return "", err
	}

	body, err := c.do(req, "guest-token")
	if err != nil {
		return "", err
	}

	var result guestTokenResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if result.AuthToken == "" {
		return "", &APIError{Endpoint: "guest-token", StatusCode: http.StatusOK, Message: "empty authToken"}
	}

	logger.Info("获取 guest token 成功", logger.String("deviceId", payload.DeviceID))
	return result.AuthToken, nil
}
