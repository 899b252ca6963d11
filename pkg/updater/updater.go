// Package updater decides whether a published release should replace the
// running firmware and hands the image over to a Flasher.
package updater

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/travigo/departures-board/pkg/feeds/release"
)

const FirmwareAsset = "firmware.bin"

var ErrNoFirmware = errors.New("release has no " + FirmwareAsset + " asset")

// Flasher transfers a firmware image and installs it. Progress is reported as a percentage.
type Flasher interface {
	Flash(ctx context.Context, asset release.Asset, token string, progress func(percent int)) error
}

// Candidate returns the firmware asset to install when the descriptor is newer
// than the running version. ok is false when no update is needed.
func Candidate(descriptor release.Descriptor, running string) (asset release.Asset, ok bool, err error) {
	newer, err := descriptor.Newer(running)
	if err != nil {
		return release.Asset{}, false, err
	}
	if !newer {
		return release.Asset{}, false, nil
	}

	asset, found := descriptor.Asset(FirmwareAsset)
	if !found {
		return release.Asset{}, false, errors.Wrapf(ErrNoFirmware, "release %s", descriptor.Tag)
	}

	return asset, true, nil
}

// LogFlasher stands in for a device flasher and only records what would be installed.
type LogFlasher struct {
	Step time.Duration
}

func (f LogFlasher) Flash(ctx context.Context, asset release.Asset, token string, progress func(percent int)) error {
	log.Info().
		Str("asset", asset.Name).
		Str("url", asset.URL).
		Bool("authenticated", token != "").
		Msg("Installing firmware")

	for percent := 0; percent <= 100; percent += 25 {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "firmware install cancelled")
		}
		if progress != nil {
			progress(percent)
		}
		if f.Step > 0 {
			time.Sleep(f.Step)
		}
	}

	return nil
}
