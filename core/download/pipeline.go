package download

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"CineBot/logger"
	"CineBot/model"

	"github.com/google/uuid"
)

// Stage 进度所属阶段
type Stage string

const (
	StageDownload Stage = "download"
	StageUpload   Stage = "upload"
)

// ProgressFunc 进度回调，total 未知时为 0
type ProgressFunc func(stage Stage, current, total int64)

// Request 一次下载任务
type Request struct {
	ManifestURL   string
	Quality       model.Quality
	AudioTrackIDs []string
	// AudioFormatIDs 与 AudioTrackIDs 一一对应，作为 yt-dlp 的格式 id
	AudioFormatIDs []string
	AuthToken      string
	Title          string
}

// Pipeline 下载并合并音视频，返回产物路径
type Pipeline interface {
	Download(ctx context.Context, req Request, progress ProgressFunc) (string, error)
}

const progressPrefix = "[progress]"

// ExecPipeline 通过 yt-dlp 下载 DASH 流，ffmpeg 负责合并
type ExecPipeline struct {
	ytdlpPath  string
	ffmpegPath string
	workRoot   string
}

// NewExecPipeline 创建 yt-dlp 下载管线
func NewExecPipeline(ytdlpPath, ffmpegPath, workRoot string) *ExecPipeline {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	return &ExecPipeline{ytdlpPath: ytdlpPath, ffmpegPath: ffmpegPath, workRoot: workRoot}
}

// formatSelector bv*[height=H]+fmt1+fmt2
func formatSelector(req Request) string {
	ids := req.AudioFormatIDs
	if len(ids) == 0 {
		ids = req.AudioTrackIDs
	}
	parts := append([]string{fmt.Sprintf("bv*[height=%d]", req.Quality.Height)}, ids...)
	return strings.Join(parts, "+")
}

func (p *ExecPipeline) buildArgs(req Request, workDir string) []string {
	title := req.Title
	if title == "" {
		title = "video"
	}
	args := []string{
		"--allow-unplayable-formats",
		"--audio-multistreams",
		"--no-part",
		"--newline",
		"--progress",
		"--progress-template", "download:" + progressPrefix + " %(progress.downloaded_bytes)s %(progress.total_bytes)s %(progress.total_bytes_estimate)s",
		"--print", "after_move:filepath",
		"--no-simulate",
		"--merge-output-format", "mkv",
		"-f", formatSelector(req),
		"-o", filepath.Join(workDir, fmt.Sprintf("%s.%dp.%%(ext)s", title, req.Quality.Height)),
	}
	if p.ffmpegPath != "" {
		args = append(args, "--ffmpeg-location", p.ffmpegPath)
	}
	if req.AuthToken != "" {
		args = append(args, "--add-header", "accesstoken:"+req.AuthToken)
	}
	return append(args, req.ManifestURL)
}

// parseProgressLine 解析进度模板输出，NA 视为 0
func parseProgressLine(line string) (current, total int64, ok bool) {
	if !strings.HasPrefix(line, progressPrefix) {
		return 0, 0, false
	}
	fields := strings.Fields(strings.TrimPrefix(line, progressPrefix))
	if len(fields) == 0 {
		return 0, 0, false
	}
	num := func(s string) int64 {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return int64(f)
	}
	current = num(fields[0])
	if len(fields) > 1 {
		total = num(fields[1])
	}
	if total == 0 && len(fields) > 2 {
		total = num(fields[2])
	}
	return current, total, true
}

// Download 在独立工作目录中运行 yt-dlp，失败时清理工作目录
func (p *ExecPipeline) Download(ctx context.Context, req Request, progress ProgressFunc) (path string, err error) {
	workDir := filepath.Join(p.workRoot, uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return "", fmt.Errorf("创建工作目录失败: %w", err)
	}
	defer func() {
		if err != nil {
			os.RemoveAll(workDir)
		}
	}()

	args := p.buildArgs(req, workDir)
	cmd := exec.CommandContext(ctx, p.ytdlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}

	logger.Info("启动 yt-dlp",
		logger.String("workDir", workDir),
		logger.String("format", formatSelector(req)))

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("启动 yt-dlp 失败: %w", err)
	}

	printed := scanOutput(stdout, progress)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp 执行失败: %w, stderr: %s", err, tail(stderr.String(), 2048))
	}

	if printed != "" {
		if _, statErr := os.Stat(printed); statErr == nil {
			return printed, nil
		}
	}
	return findArtifact(workDir)
}

// scanOutput 读取 stdout，回调进度，返回最后一行非进度输出（--print 的文件路径）
func scanOutput(r io.Reader, progress ProgressFunc) string {
	var printed string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if current, total, ok := parseProgressLine(line); ok {
			if progress != nil {
				progress(StageDownload, current, total)
			}
			continue
		}
		if !strings.HasPrefix(line, "[") {
			printed = line
		}
	}
	return printed
}

// findArtifact 没有打印路径时取工作目录中最大的文件
func findArtifact(workDir string) (string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return "", err
	}
	var best string
	var bestSize int64 = -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(workDir, e.Name())
			bestSize = info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("yt-dlp 没有生成输出文件")
	}
	return best, nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
