package mpd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"CineBot/model"
)

// ErrMalformedManifest manifest 缺少 MPD/Period 结构或无法解码
var ErrMalformedManifest = errors.New("malformed manifest")

// ParseError 解析失败
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mpd: %s: %v", e.Reason, e.Err)
	}
	return "mpd: " + e.Reason
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedManifest, e.Err}
	}
	return []error{ErrMalformedManifest}
}

// Manifest 归一化后的可选项
type Manifest struct {
	Qualities   []model.Quality
	AudioTracks []model.AudioTrack
}

const (
	defaultChannels = 2
	defaultCodec    = "AAC"
)

// Parse 解析 DASH manifest。没有任何清晰度不算错误
func Parse(data []byte) (*Manifest, error) {
	var doc document
	dec := xml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Reason: "decode", Err: err}
	}
	if len(doc.Periods) == 0 {
		return nil, &ParseError{Reason: "missing Period"}
	}

	// 多 Period 时只取第一个
	return normalize(doc.Periods[0]), nil
}

func normalize(p period) *Manifest {
	m := &Manifest{
		Qualities:   []model.Quality{},
		AudioTracks: []model.AudioTrack{},
	}

	for _, set := range p.AdaptationSets {
		switch mediaType := set.mediaType(); {
		case strings.HasPrefix(mediaType, "video/"):
			m.Qualities = append(m.Qualities, videoQualities(set)...)
		case strings.HasPrefix(mediaType, "audio/"):
			if track, ok := audioTrack(set); ok {
				m.AudioTracks = append(m.AudioTracks, track)
			}
		}
	}

	sort.SliceStable(m.Qualities, func(i, j int) bool {
		a, b := m.Qualities[i], m.Qualities[j]
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		return a.BitrateMbps > b.BitrateMbps
	})
	return m
}

// mediaType 优先 mimeType，其次 contentType，最后看第一个 Representation
func (s adaptationSet) mediaType() string {
	if s.MimeType != "" {
		return s.MimeType
	}
	if s.ContentType != "" {
		return s.ContentType + "/"
	}
	if len(s.Representations) > 0 {
		return s.Representations[0].MimeType
	}
	return ""
}

func videoQualities(set adaptationSet) []model.Quality {
	var out []model.Quality
	for _, rep := range set.Representations {
		height, errH := strconv.Atoi(strings.TrimSpace(rep.Height))
		bandwidth, errB := strconv.ParseInt(strings.TrimSpace(rep.Bandwidth), 10, 64)
		if errH != nil || errB != nil || height <= 0 {
			continue
		}
		out = append(out, model.Quality{
			Height:      height,
			BitrateMbps: math.Round(float64(bandwidth)/1_000_000*10) / 10,
		})
	}
	return out
}

func audioTrack(set adaptationSet) (model.AudioTrack, bool) {
	if set.Lang == "" {
		return model.AudioTrack{}, false
	}

	var first *representation
	if len(set.Representations) > 0 {
		first = &set.Representations[0]
	}

	track := model.AudioTrack{
		ID:       set.ID,
		Language: LanguageName(set.Lang),
		Channels: defaultChannels,
		Codec:    set.Codecs,
	}

	configs := set.ChannelConfigs
	if len(configs) == 0 && first != nil {
		configs = first.ChannelConfigs
	}
	if len(configs) > 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(configs[0].Value)); err == nil && n > 0 {
			track.Channels = n
		}
	}

	if first != nil {
		if track.ID == "" {
			track.ID = first.ID
		}
		track.FormatID = first.ID
		if track.Codec == "" {
			track.Codec = first.Codecs
		}
		// 只取第一个 Representation 的码率
		if bw, err := strconv.ParseInt(strings.TrimSpace(first.Bandwidth), 10, 64); err == nil {
			track.BitrateKbps = int(math.RoundToEven(float64(bw) / 1000))
		}
	}
	if track.FormatID == "" {
		track.FormatID = track.ID
	}
	if track.Codec == "" {
		track.Codec = defaultCodec
	}
	return track, true
}
