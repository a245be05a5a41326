package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	ffmpegEnv  = "CUETRACK_FFMPEG_PATH"
	ffprobeEnv = "CUETRACK_FFPROBE_PATH"
)

var ErrNotFound = errors.New("ffmpeg binaries not found")

type BinaryPaths struct {
	FFmpeg  string
	FFprobe string
}

// Locate finds ffmpeg and ffprobe. The environment wins, then the
// configured path (the ffmpeg binary or the directory holding both), then
// PATH.
func Locate(configured string) (BinaryPaths, error) {
	paths := BinaryPaths{
		FFmpeg:  os.Getenv(ffmpegEnv),
		FFprobe: os.Getenv(ffprobeEnv),
	}

	if configured != "" {
		dir := configured
		if info, err := os.Stat(configured); err == nil && !info.IsDir() {
			dir = filepath.Dir(configured)
			if paths.FFmpeg == "" {
				paths.FFmpeg = configured
			}
		}
		if paths.FFmpeg == "" {
			paths.FFmpeg = existing(filepath.Join(dir, "ffmpeg"+executableSuffix()))
		}
		if paths.FFprobe == "" {
			paths.FFprobe = existing(filepath.Join(dir, "ffprobe"+executableSuffix()))
		}
	}

	if paths.FFmpeg == "" {
		if found, err := exec.LookPath("ffmpeg"); err == nil {
			paths.FFmpeg = found
		}
	}
	if paths.FFprobe == "" {
		if found, err := exec.LookPath("ffprobe"); err == nil {
			paths.FFprobe = found
		}
	}

	var missing []string
	if paths.FFmpeg == "" {
		missing = append(missing, "ffmpeg")
	}
	if paths.FFprobe == "" {
		missing = append(missing, "ffprobe")
	}
	if len(missing) > 0 {
		return paths, fmt.Errorf("%w: %s (set %s/%s or ffmpeg_path)",
			ErrNotFound, strings.Join(missing, ", "), ffmpegEnv, ffprobeEnv)
	}
	return paths, nil
}

func existing(path string) string {
	if fileExists(path) {
		return path
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
