package platform

import (
	"fmt"
	"os/exec"
)

// RequiredBinaries lists external system binaries the bot needs to function
var RequiredBinaries = []string{
	"yt-dlp",
	"ffmpeg",
}

// OptionalBinaries enable extra features when present
var OptionalBinaries = map[string]string{
	"ffprobe": "oversize audio re-encoding",
}

// ValidateDependencies checks PATH for the required binaries and returns
// the features disabled by missing optional ones.
func ValidateDependencies() (disabled []string, err error) {
	return validateDependencies(exec.LookPath)
}

func validateDependencies(lookPath func(string) (string, error)) ([]string, error) {
	for _, bin := range RequiredBinaries {
		if _, err := lookPath(bin); err != nil {
			return nil, fmt.Errorf("required dependency: '%s' not found in PATH", bin)
		}
	}

	var disabled []string
	for bin, feature := range OptionalBinaries {
		if _, err := lookPath(bin); err != nil {
			disabled = append(disabled, fmt.Sprintf("%s (%s not found)", feature, bin))
		}
	}
	return disabled, nil
}
