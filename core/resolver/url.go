package resolver

import (
	"net/url"
	"strings"

	"CineBot/model"
)

// ParseContentURL 校验链接属于平台域名，并取路径最后一个非空段作为内容 ID
func ParseContentURL(raw, domainMarker string) (model.ContentRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || domainMarker == "" || !strings.Contains(raw, domainMarker) {
		return model.ContentRef{}, ErrInvalidURL
	}

	path := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		if !strings.Contains(u.Host, domainMarker) && !strings.Contains(u.Path, domainMarker) {
			return model.ContentRef{}, ErrInvalidURL
		}
		path = u.Path
	} else {
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
	}

	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if seg := strings.TrimSpace(segments[i]); seg != "" && !strings.Contains(seg, domainMarker) {
			return model.ContentRef{ID: seg}, nil
		}
	}
	return model.ContentRef{}, ErrInvalidURL
}
