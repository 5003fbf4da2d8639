// validate.go settings validation performed on load
package conf

import (
	"github.com/xrflab/xrfmap-go/internal/errors"
)

// ValidateSettings checks the loaded settings for values the processing core
// cannot work with. It is called from Load before the instance is published.
func ValidateSettings(s *Settings) error {
	switch s.Mask.Mode {
	case MaskModeNone, MaskModeRect, MaskModeFile:
	default:
		return errors.Newf("invalid mask mode %d, must be 0 (none), 1 (rectangle) or 2 (file)", s.Mask.Mode).
			Category(errors.CategoryValidation).
			Context("mask_mode", s.Mask.Mode).
			Build()
	}

	if s.Mask.Mode == MaskModeFile && s.Mask.File == "" {
		return errors.ValidationError("mask mode is 'file' but no mask file is configured")
	}

	if s.Processing.ChunkPixels <= 0 {
		return errors.Newf("processing.chunkpixels must be positive, got %d", s.Processing.ChunkPixels).
			Category(errors.CategoryValidation).
			Build()
	}

	if s.Processing.MinChunks <= 0 {
		return errors.Newf("processing.minchunks must be positive, got %d", s.Processing.MinChunks).
			Category(errors.CategoryValidation).
			Build()
	}

	if s.Processing.Workers < 0 {
		return errors.Newf("processing.workers must not be negative, got %d", s.Processing.Workers).
			Category(errors.CategoryValidation).
			Build()
	}

	if s.Fit.IncidentEnergy < 0 {
		return errors.Newf("fit.incidentenergy must not be negative, got %g", s.Fit.IncidentEnergy).
			Category(errors.CategoryValidation).
			Build()
	}

	switch s.Main.Log.Rotation {
	case RotationDaily, RotationWeekly, RotationSize:
	default:
		return errors.Newf("invalid log rotation %q, must be daily, weekly or size", s.Main.Log.Rotation).
			Category(errors.CategoryValidation).
			Build()
	}

	return nil
}
