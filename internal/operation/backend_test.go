package operation

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"qmi-firmware-update/internal/config"
	"qmi-firmware-update/internal/logger"
)

// writeHelper creates a shell script that records its arguments and
// verbosity to <dir>/args and exits with the given code.
func writeHelper(t *testing.T, dir string, exitCode int) string {
	t.Helper()
	path := filepath.Join(dir, "helper.sh")
	script := "#!/bin/sh\n" +
		"echo \"$QFU_VERBOSITY\" > " + filepath.Join(dir, "verbosity") + "\n" +
		"for a in \"$@\"; do echo \"$a\"; done > " + filepath.Join(dir, "args") + "\n" +
		"echo helper output\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func writeImages(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("image"), 0o644))
		paths = append(paths, path)
	}
	return paths
}

func TestUpdateRunsHelper(t *testing.T) {
	dir := t.TempDir()
	helper := writeHelper(t, dir, 0)
	images := writeImages(t, dir, "a.cwe", "b.nvu")

	color.NoColor = true
	var stdout, stderr bytes.Buffer
	log := logger.New(logger.Verbose, &stdout, &stderr)

	b := NewCommandBackend(config.Operations{
		Update: config.Command{Command: helper, Args: []string{"update"}},
	}, log)

	err := b.Update(UpdateParams{
		Images:          images,
		Device:          "/dev/cdc-wdm4",
		FirmwareVersion: "05.05.58.00",
		Carrier:         "Generic",
		ViaProxy:        true,
	})
	require.NoError(t, err)

	want := []string{
		"update",
		"--device", "/dev/cdc-wdm4",
		"--firmware-version", "05.05.58.00",
		"--carrier", "Generic",
		"--device-open-proxy",
		"--",
		images[0], images[1],
	}
	assert.Equal(t, want, readLines(t, filepath.Join(dir, "args")))
	assert.Equal(t, []string{"verbose"}, readLines(t, filepath.Join(dir, "verbosity")))
	assert.Contains(t, stdout.String(), "helper output\n")
	assert.Contains(t, stdout.String(), "[Debug] running command: "+helper+" update --device")
	assert.Empty(t, stderr.String())
}

func TestUpdateQDLAndVerify(t *testing.T) {
	dir := t.TempDir()
	helper := writeHelper(t, dir, 0)
	images := writeImages(t, dir, "a.cwe")

	b := NewCommandBackend(config.Operations{
		UpdateQDL: config.Command{Command: helper},
		Verify:    config.Command{Command: helper, Args: []string{"verify", "--strict"}},
	}, logger.Discard())

	require.NoError(t, b.UpdateQDL(images, "/dev/ttyUSB0"))
	assert.Equal(t, []string{"--serial", "/dev/ttyUSB0", "--", images[0]}, readLines(t, filepath.Join(dir, "args")))
	assert.Equal(t, []string{"silent"}, readLines(t, filepath.Join(dir, "verbosity")))

	require.NoError(t, b.Verify(images))
	assert.Equal(t, []string{"verify", "--strict", "--", images[0]}, readLines(t, filepath.Join(dir, "args")))
}

func TestHelperFailure(t *testing.T) {
	dir := t.TempDir()
	helper := writeHelper(t, dir, 3)
	images := writeImages(t, dir, "a.cwe")

	b := NewCommandBackend(config.Operations{Verify: config.Command{Command: helper}}, logger.Discard())

	err := b.Verify(images)
	assert.EqualError(t, err, helper+": exit status 3")
}

func TestNotConfigured(t *testing.T) {
	b := NewCommandBackend(config.Operations{}, logger.Discard())

	assert.EqualError(t, b.Update(UpdateParams{Images: []string{"a"}}), "no back end configured for update operation")
	assert.EqualError(t, b.UpdateQDL([]string{"a"}, "/dev/ttyUSB0"), "no back end configured for update-qdl operation")
	assert.EqualError(t, b.Verify([]string{"a"}), "no back end configured for verify operation")
}

func TestCheckImages(t *testing.T) {
	dir := t.TempDir()
	good := writeImages(t, dir, "good.cwe")[0]
	empty := filepath.Join(dir, "empty.nvu")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	missing := filepath.Join(dir, "missing.cwe")

	color.NoColor = true
	var stderr bytes.Buffer
	log := logger.New(logger.Normal, &bytes.Buffer{}, &stderr)

	err := checkImages([]string{good, missing, dir, empty}, log)
	require.Error(t, err)

	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
	assert.EqualError(t, errs[1], "image "+dir+" is not a regular file")
	assert.Contains(t, stderr.String(), "-Warning ** image "+empty+" is empty")

	assert.NoError(t, checkImages([]string{good}, log))
}

func TestHelperNotRunWhenImagesMissing(t *testing.T) {
	dir := t.TempDir()
	helper := writeHelper(t, dir, 0)

	b := NewCommandBackend(config.Operations{Verify: config.Command{Command: helper}}, logger.Discard())

	err := b.Verify([]string{filepath.Join(dir, "nope.cwe")})
	assert.ErrorContains(t, err, "cannot access image")
	_, statErr := os.Stat(filepath.Join(dir, "args"))
	assert.True(t, os.IsNotExist(statErr))
}
