package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Info 视频文件的基本信息
type Info struct {
	Duration    float64 // 秒
	Width       int
	Height      int
	AudioTracks int
}

// Prober 使用 ffprobe 读取媒体信息
type Prober struct {
	ffprobePath string
}

// NewProber ffprobe 与 ffmpeg 位于同一目录
func NewProber(ffmpegPath string) *Prober {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Prober{ffprobePath: ffprobeFor(ffmpegPath)}
}

// ffprobeFor 只替换文件名部分，目录里的 ffmpeg 保持不变
func ffprobeFor(ffmpegPath string) string {
	dir, base := filepath.Split(ffmpegPath)
	base = strings.Replace(base, "ffmpeg", "ffprobe", 1)
	if dir == "" {
		return base
	}
	return filepath.Join(dir, base)
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe 读取时长、分辨率和音轨数量
func (p *Prober) Probe(ctx context.Context, path string) (*Info, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "stream=codec_type,width,height:format=duration",
		"-of", "json",
		path,
	}

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe execution failed for %s: %w\nFFprobe Error: %s", path, err, stderr.String())
	}
	return parseProbeOutput(out.Bytes())
}

func parseProbeOutput(data []byte) (*Info, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ffprobe output: %w", err)
	}

	info := &Info{}
	if probe.Format.Duration != "" {
		d, err := strconv.ParseFloat(probe.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", probe.Format.Duration, err)
		}
		info.Duration = d
	}
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if info.Height == 0 {
				info.Width, info.Height = s.Width, s.Height
			}
		case "audio":
			info.AudioTracks++
		}
	}
	return info, nil
}
