package deps

import (
	"os/exec"
	"strings"
)

// Requirements lists the external tools for the given ffmpeg and ffprobe
// commands. ffprobe is only needed for source detection in one-shot
// conversions, so it is optional.
func Requirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     commandOrDefault(ffmpegBinary, "ffmpeg"),
			Description: "Required for audio extraction",
		},
		{
			Name:        "FFprobe",
			Command:     commandOrDefault(ffprobeBinary, "ffprobe"),
			Description: "Used to detect source audio properties",
			Optional:    true,
		},
	}
}

// ResolvePath returns the absolute path of command when it can be found,
// or command unchanged otherwise.
func ResolvePath(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return command
	}
	if resolved, err := exec.LookPath(command); err == nil {
		return resolved
	}
	return command
}

// MissingRequired returns the names of required dependencies that are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}

func commandOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}
