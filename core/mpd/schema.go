package mpd

import "encoding/xml"

// 只声明解析清晰度和音轨需要的字段，属性全部按字符串读取，
// 缺失或格式错误在 normalize 阶段处理。重复元素统一解码为切片，
// 单个元素和多个元素没有区别。

type document struct {
	XMLName xml.Name `xml:"MPD"`
	Periods []period `xml:"Period"`
}

type period struct {
	ID             string          `xml:"id,attr"`
	AdaptationSets []adaptationSet `xml:"AdaptationSet"`
}

type adaptationSet struct {
	ID              string           `xml:"id,attr"`
	MimeType        string           `xml:"mimeType,attr"`
	ContentType     string           `xml:"contentType,attr"`
	Lang            string           `xml:"lang,attr"`
	Codecs          string           `xml:"codecs,attr"`
	ChannelConfigs  []channelConfig  `xml:"AudioChannelConfiguration"`
	Representations []representation `xml:"Representation"`
}

type representation struct {
	ID             string          `xml:"id,attr"`
	MimeType       string          `xml:"mimeType,attr"`
	Codecs         string          `xml:"codecs,attr"`
	Bandwidth      string          `xml:"bandwidth,attr"`
	Width          string          `xml:"width,attr"`
	Height         string          `xml:"height,attr"`
	ChannelConfigs []channelConfig `xml:"AudioChannelConfiguration"`
}

type channelConfig struct {
	SchemeIDURI string `xml:"schemeIdUri,attr"`
	Value       string `xml:"value,attr"`
}
