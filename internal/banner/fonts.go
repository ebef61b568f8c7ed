package banner

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"

	"ChannelBanner/internal/domain"
)

// loadFont returns the first font among paths that can be read and parsed.
func loadFont(paths ...string) (*opentype.Font, string, error) {
	var errs []error
	for _, path := range paths {
		if path == "" {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed, err := opentype.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse %s: %w", path, err))
			continue
		}
		return parsed, path, nil
	}

	if len(errs) == 0 {
		errs = append(errs, errors.New("no font configured"))
	}
	return nil, "", fmt.Errorf("%w: fonts %v: %w", domain.ErrResourceMissing, paths, errors.Join(errs...))
}

// newFace sizes a font at 72 DPI, so size is the pixel em size.
func newFace(f *opentype.Font, size float64) (font.Face, error) {
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: size %.0f face: %w", domain.ErrResourceMissing, size, err)
	}
	return face, nil
}
