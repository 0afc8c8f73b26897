// Package clip implements the chat box that accepts a video link to clip.
//
// Validation is client side only: [Classify] decides which notice the box shows while it simulates processing.
// Options are presentation state and are never sent anywhere.
package clip

import (
	"strings"
)

// Quality is the output option picked in the chat box.
type Quality string

const (
	QualityAuto      Quality = "auto"
	QualityAudioOnly Quality = "audio-only"
	QualityMute      Quality = "mute"
)

// Qualities lists the selectable options in display order.
var Qualities = []Quality{QualityAuto, QualityAudioOnly, QualityMute}

// Label returns the text shown for q in the option picker.
func (q Quality) Label() string {
	switch q {
	case QualityAuto:
		return "Best quality (Up to 1080p)"
	case QualityAudioOnly:
		return "Audio only"
	case QualityMute:
		return "Muted video"
	default:
		return string(q)
	}
}

// ParseQuality returns the quality named by s, and false when s is not one of [Qualities].
func ParseQuality(s string) (Quality, bool) {
	for _, q := range Qualities {
		if string(q) == s {
			return q, true
		}
	}
	return QualityAuto, false
}

// Options are the per-clip toggles.
type Options struct {
	Quality      Quality `json:"quality"`
	SponsorBlock bool    `json:"sponsor_block"`
	Thumbnail    bool    `json:"thumbnail"`
}

// DefaultOptions returns best quality with sponsor segments blocked and no thumbnail.
func DefaultOptions() Options {
	return Options{Quality: QualityAuto, SponsorBlock: true}
}

// ThumbnailAllowed reports whether the thumbnail toggle is enabled for the current quality.
func (o Options) ThumbnailAllowed() bool {
	return o.Quality != QualityAudioOnly
}

// WithQuality returns o with q selected. Audio only output has no thumbnail.
func (o Options) WithQuality(q Quality) Options {
	o.Quality = q
	if !o.ThumbnailAllowed() {
		o.Thumbnail = false
	}
	return o
}

// WithThumbnail returns o with the thumbnail toggle set, unless the quality disallows it.
func (o Options) WithThumbnail(on bool) Options {
	o.Thumbnail = on && o.ThumbnailAllowed()
	return o
}

var youtubePrefixes = []string{
	"https://youtube.com",
	"https://www.youtube.com",
	"https://youtu.be",
	"www.youtube.com",
	"youtu.be",
	"youtube.com",
}

// IsYouTubeURL reports whether s starts with one of the accepted YouTube prefixes.
func IsYouTubeURL(s string) bool {
	for _, p := range youtubePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// HasPlaylist reports whether s carries a playlist parameter.
func HasPlaylist(s string) bool {
	return strings.Contains(s, "list=")
}

// Verdict is the outcome of validating a submitted link.
type Verdict int

const (
	NotYouTube Verdict = iota
	Playlist
	Accepted
)

func (v Verdict) String() string {
	switch v {
	case NotYouTube:
		return "not_youtube"
	case Playlist:
		return "playlist"
	case Accepted:
		return "accepted"
	default:
		return "unknown"
	}
}

// Classify validates s.
func Classify(s string) Verdict {
	switch {
	case !IsYouTubeURL(s):
		return NotYouTube
	case HasPlaylist(s):
		return Playlist
	default:
		return Accepted
	}
}

// Notice is the message shown while a submission is processing.
type Notice struct {
	Text   string `json:"text"`
	Typing bool   `json:"typing"`
}

const (
	TextNotYouTube = "This is not a YouTube video link"
	TextPlaylist   = "Playlist is not supported"
	TextProcessing = "Processing"
)

// NoticeFor maps a verdict to its notice. Only accepted links show the typing indicator.
func NoticeFor(v Verdict) Notice {
	switch v {
	case NotYouTube:
		return Notice{Text: TextNotYouTube}
	case Playlist:
		return Notice{Text: TextPlaylist}
	default:
		return Notice{Text: TextProcessing, Typing: true}
	}
}
