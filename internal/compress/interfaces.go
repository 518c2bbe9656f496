package compress

import "context"

// Shrinker fits audio files under an upload size limit.
type Shrinker interface {
	// Shrink returns inputPath when the file already fits, otherwise the
	// path of a re-encoded copy next to it.
	Shrink(ctx context.Context, inputPath string, limitBytes int64) (string, error)
}
