package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{Index: 0, CodecType: "video", Width: 600, Height: 600, Disposition: map[string]int{"attached_pic": 1}},
			{Index: 1, CodecType: "video", Width: 1920, Height: 1080},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
			BitRate:  "32000",
		},
	}
	if result.VideoStreamCount() != 2 {
		t.Fatalf("expected 2 video streams, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	video, ok := result.PrimaryVideo()
	if !ok || video.Index != 1 || video.Width != 1920 {
		t.Fatalf("expected cover art to be skipped, got %#v", video)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if result.BitRate() != 32000 {
		t.Fatalf("unexpected bitrate: %d", result.BitRate())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
	if _, ok := result.PrimaryVideo(); ok {
		t.Fatal("expected no primary video")
	}
}

func TestParseKeepsTagsAndRaw(t *testing.T) {
	payload := []byte(`{"streams":[{"index":1,"codec_type":"audio","codec_name":"aac","channels":2,"tags":{"language":"hin"},"disposition":{"default":1}}],"format":{"duration":"12.5"}}`)
	result, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := result.Streams[0].Tags["language"]; got != "hin" {
		t.Fatalf("expected language tag, got %q", got)
	}
	if result.Streams[0].Disposition["default"] != 1 {
		t.Fatal("expected default disposition")
	}
	if string(result.RawJSON()) != string(payload) {
		t.Fatal("expected raw payload to be retained")
	}
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestInspectRunsBinary(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\necho '{\"streams\":[{\"index\":0,\"codec_type\":\"video\",\"width\":1280}],\"format\":{\"duration\":\"4.0\"}}'\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	result, err := Inspect(context.Background(), stub, "/tmp/input.mp4")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.DurationSeconds() != 4 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if _, err := Inspect(context.Background(), stub, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestInspectReportsStderr(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho 'moov atom not found' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := Inspect(context.Background(), stub, "/tmp/broken.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "moov atom not found") {
		t.Fatalf("expected stderr in error, got %q", got)
	}
}
