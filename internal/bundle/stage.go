// Package bundle unpacks firmware image bundles (vendor archives holding the
// actual .cwe/.nvu/.spk images) so that their members can be passed to an
// operation in place of the archive.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"

	"qmi-firmware-update/internal/logger"
)

// Stage replaces every bundle in images by the files it contains, keeping
// the position of the bundle in the list and the order of its members.
// Other images are passed through untouched. The returned cleanup function
// removes everything that was extracted and is never nil.
func Stage(images []string, workDir string, log *logger.Logger) (staged []string, cleanup func(), err error) {
	var dirs []string
	cleanup = func() {
		for _, dir := range dirs {
			if err := os.RemoveAll(dir); err != nil {
				log.Warnf("failed to remove %s: %v", dir, err)
			}
		}
	}
	defer func() {
		if err != nil {
			cleanup()
			cleanup = func() {}
		}
	}()

	for _, image := range images {
		if !IsBundle(image) {
			staged = append(staged, image)
			continue
		}

		dir, err := os.MkdirTemp(workDir, "qfu-"+filepath.Base(image)+"-")
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create staging directory: %w", err)
		}
		dirs = append(dirs, dir)

		log.Debugf("unpacking %s into %s", image, dir)
		files, err := ExtractArchive(image, dir)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to unpack %s: %w", image, err)
		}
		if len(files) == 0 {
			return nil, cleanup, fmt.Errorf("bundle %s contains no files", image)
		}
		for _, f := range files {
			log.Debugf("  %s", filepath.Base(f))
		}
		staged = append(staged, files...)
	}
	return staged, cleanup, nil
}
