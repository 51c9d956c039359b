package jiocine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"CineBot/logger"
	"CineBot/model"
)

type assetDetailsResponse struct {
	Result []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		FullTitle string `json:"fullTitle"`
		ShowName  string `json:"showName"`
		MediaType string `json:"mediaType"`
	} `json:"result"`
}

// GetContentDetails 获取内容详情
func (c *Client) GetContentDetails(ctx context.Context, contentID string) (*model.ContentMetadata, error) {
	params := url.Values{}
	params.Set("ids", "include:"+contentID)
	params.Set("responseType", "common")
	params.Set("devicePlatformType", "desktop")
	endpoint := fmt.Sprintf("%s/content/query/asset-details?%s", strings.TrimRight(c.contentBaseURL, "/"), params.Encode())

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req, "asset-details")
	if err != nil {
		logger.Warn("获取内容详情失败", logger.String("contentId", contentID), logger.ErrorField(err))
		return nil, err
	}

	var result assetDetailsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	if len(result.Result) == 0 {
		return nil, ErrNotFound
	}

	item := result.Result[0]
	title := item.Name
	if title == "" {
		title = item.FullTitle
	}
	if title == "" {
		title = item.ShowName
	}

	logger.Debug("获取内容详情成功", logger.String("contentId", contentID), logger.String("title", title))
	return &model.ContentMetadata{ID: contentID, Title: title}, nil
}
