package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/cuetrack/internal/ffmpeg"
	"github.com/mgpai22/cuetrack/internal/logging"
	"github.com/mgpai22/cuetrack/internal/track"
)

// a subtitle stream inside a media container
type SubtitleStream struct {
	Index    int    // position among the container's subtitle streams
	Codec    string
	Language string
	Title    string
}

// JSON output from ffprobe
type ffprobeOutput struct {
	Streams []struct {
		CodecName string            `json:"codec_name"`
		Tags      map[string]string `json:"tags"`
	} `json:"streams"`
}

type Extractor struct {
	paths  ffmpegbin.BinaryPaths
	logger *logging.Logger
}

// NewExtractor locates ffmpeg, see ffmpegbin.Locate for the lookup order.
func NewExtractor(ffmpegPath string, logger *logging.Logger) (*Extractor, error) {
	paths, err := ffmpegbin.Locate(ffmpegPath)
	if err != nil {
		return nil, err
	}
	return &Extractor{paths: paths, logger: logging.OrNop(logger).Named("media")}, nil
}

// lists the subtitle streams of a media file
func (e *Extractor) Streams(ctx context.Context, mediaPath string) ([]SubtitleStream, error) {
	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("media file not found: %s", mediaPath)
	}

	cmd := exec.CommandContext(ctx, e.paths.FFprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "s",
		mediaPath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbe(out.Bytes())
}

func parseProbe(data []byte) ([]SubtitleStream, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	streams := make([]SubtitleStream, 0, len(probe.Streams))
	for i, s := range probe.Streams {
		streams = append(streams, SubtitleStream{
			Index:    i,
			Codec:    s.CodecName,
			Language: s.Tags["language"],
			Title:    s.Tags["title"],
		})
	}
	return streams, nil
}

// muxer and extension ffmpeg writes a track format with
func muxerFor(format track.Format) (string, string, error) {
	switch format {
	case track.FormatWebVTT:
		return "webvtt", ".vtt", nil
	case track.FormatTTML:
		return "ttml", ".ttml", nil
	default:
		return "", "", fmt.Errorf("unsupported track format %q", format)
	}
}

func extractArgs(stream int, muxer string) ffmpeg.KwArgs {
	return ffmpeg.KwArgs{
		"map": "0:s:" + strconv.Itoa(stream),
		"f":   muxer,
	}
}

func extractStream(mediaPath, outputPath string, stream int, muxer string) *ffmpeg.Stream {
	return ffmpeg.Input(mediaPath).
		Output(outputPath, extractArgs(stream, muxer)).
		OverWriteOutput()
}

// Extract converts one subtitle stream to the given format and returns the
// converted document.
func (e *Extractor) Extract(
	ctx context.Context,
	mediaPath string,
	stream int,
	format track.Format,
) ([]byte, error) {
	if _, err := os.Stat(mediaPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("media file not found: %s", mediaPath)
	}
	muxer, ext, err := muxerFor(format)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "cuetrack-extract-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	outputPath := filepath.Join(tmpDir, "stream"+ext)

	e.logger.Debugw("Extracting subtitle stream",
		"media", mediaPath,
		"stream", stream,
		"format", string(format),
	)

	err = extractStream(mediaPath, outputPath, stream, muxer).
		SetFfmpegPath(e.paths.FFmpeg).
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg extraction failed: %w", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read extracted stream: %w", err)
	}
	return data, nil
}
