package clip

import "testing"

func TestIsYouTubeURL(t *testing.T) {
	tc := []struct {
		in   string
		want bool
	}{
		{"https://youtube.com/watch?v=abc", true},
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"www.youtube.com/watch?v=abc", true},
		{"youtu.be/abc", true},
		{"youtube.com/shorts/abc", true},
		{"http://youtube.com/watch?v=abc", false},
		{"https://vimeo.com/123", false},
		{" https://youtu.be/abc", false},
		{"", false},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsYouTubeURL(tt.in); got != tt.want {
				t.Errorf("IsYouTubeURL(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tc := []struct {
		name string
		in   string
		want Verdict
	}{
		{name: "video", in: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", want: Accepted},
		{name: "playlist", in: "https://www.youtube.com/watch?v=abc&list=PL123", want: Playlist},
		{name: "short link playlist", in: "youtu.be/abc?list=PL1", want: Playlist},
		{name: "other site with list", in: "https://example.com/?list=1", want: NotYouTube},
		{name: "plain text", in: "hello", want: NotYouTube},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNoticeFor(t *testing.T) {
	t.Run("Not YouTube Has No Typing Indicator", func(t *testing.T) {
		n := NoticeFor(NotYouTube)
		if n.Text != "This is not a YouTube video link" || n.Typing {
			t.Errorf("unexpected notice %+v", n)
		}
	})

	t.Run("Playlist Has No Typing Indicator", func(t *testing.T) {
		n := NoticeFor(Playlist)
		if n.Text != "Playlist is not supported" || n.Typing {
			t.Errorf("unexpected notice %+v", n)
		}
	})

	t.Run("Accepted Shows Typing Indicator", func(t *testing.T) {
		n := NoticeFor(Accepted)
		if n.Text != "Processing" || !n.Typing {
			t.Errorf("unexpected notice %+v", n)
		}
	})
}

func TestOptions(t *testing.T) {
	o := DefaultOptions()
	if o.Quality != QualityAuto || !o.SponsorBlock || o.Thumbnail {
		t.Fatalf("unexpected defaults %+v", o)
	}

	o = o.WithThumbnail(true)
	if !o.Thumbnail {
		t.Error("thumbnail should be enabled for auto quality")
	}

	o = o.WithQuality(QualityAudioOnly)
	if o.Thumbnail {
		t.Error("audio only should turn thumbnail off")
	}
	if o.ThumbnailAllowed() {
		t.Error("thumbnail toggle should be disabled for audio only")
	}

	if o.WithThumbnail(true).Thumbnail {
		t.Error("thumbnail cannot be enabled for audio only")
	}

	if q, ok := ParseQuality("mute"); !ok || q != QualityMute {
		t.Errorf("expected mute, got %v %v", q, ok)
	}
	if _, ok := ParseQuality("8k"); ok {
		t.Error("unknown quality should not parse")
	}
}
