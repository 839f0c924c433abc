// Package volumeflag provides the --volume flag shared by ecsfs
// commands, selecting the disk image to operate on.
package volumeflag

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

var volume = func() string {
	if def := os.Getenv("ECSFS_VOLUME"); def != "" {
		return def
	}
	return volumeFromPWD()
}()

// volumeFromPWD returns the single *.img file in the working
// directory, if there is exactly one.
func volumeFromPWD() string {
	matches, err := filepath.Glob("*.img")
	if err != nil || len(matches) != 1 {
		return ""
	}
	return matches[0]
}

func RegisterPflags(fs *pflag.FlagSet) {
	fs.StringVarP(&volume,
		"volume",
		"v",
		volume,
		`path to the volume image (default: $ECSFS_VOLUME, or the only *.img file in the working directory)`)
}

// SetDefault sets the volume unless one was already chosen via flag or
// environment.
func SetDefault(v string) {
	if volume == "" {
		volume = v
	}
}

func SetVolume(v string) {
	volume = v
}

func Volume() string {
	return volume
}
