package operation

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/multierr"

	"qmi-firmware-update/internal/config"
	"qmi-firmware-update/internal/logger"
)

// UpdateParams are the inputs of a regular (control channel) update.
// Empty version strings and carrier mean "not given".
type UpdateParams struct {
	Images          []string
	Device          string
	FirmwareVersion string
	ConfigVersion   string
	Carrier         string
	ViaProxy        bool
	ViaMBIM         bool
}

// Backend carries out the firmware operations. Each call blocks until the
// operation is over; a nil error means it succeeded.
type Backend interface {
	Update(p UpdateParams) error
	UpdateQDL(images []string, serial string) error
	Verify(images []string) error
}

// CommandBackend implements Backend by running the helper programs set up
// in the operations section of the configuration.
type CommandBackend struct {
	ops config.Operations
	log *logger.Logger
}

// NewCommandBackend returns a CommandBackend for ops.
func NewCommandBackend(ops config.Operations, log *logger.Logger) *CommandBackend {
	return &CommandBackend{ops: ops, log: log}
}

// Update runs the update helper with the device and version options.
func (b *CommandBackend) Update(p UpdateParams) error {
	args := []string{"--device", p.Device}
	if p.FirmwareVersion != "" {
		args = append(args, "--firmware-version", p.FirmwareVersion)
	}
	if p.ConfigVersion != "" {
		args = append(args, "--config-version", p.ConfigVersion)
	}
	if p.Carrier != "" {
		args = append(args, "--carrier", p.Carrier)
	}
	if p.ViaProxy {
		args = append(args, "--device-open-proxy")
	}
	if p.ViaMBIM {
		args = append(args, "--device-open-mbim")
	}
	return b.run("update", b.ops.Update, args, p.Images)
}

// UpdateQDL runs the QDL helper on the given serial port.
func (b *CommandBackend) UpdateQDL(images []string, serial string) error {
	return b.run("update-qdl", b.ops.UpdateQDL, []string{"--serial", serial}, images)
}

// Verify runs the verify helper.
func (b *CommandBackend) Verify(images []string) error {
	return b.run("verify", b.ops.Verify, nil, images)
}

func (b *CommandBackend) run(op string, c config.Command, args, images []string) error {
	if !c.Configured() {
		return fmt.Errorf("no back end configured for %s operation", op)
	}
	if err := checkImages(images, b.log); err != nil {
		return err
	}

	argv := append([]string(nil), c.Args...)
	argv = append(argv, args...)
	argv = append(argv, "--")
	argv = append(argv, images...)

	cmd := exec.Command(c.Command, argv...)
	cmd.Stdout = b.log.Stdout()
	cmd.Stderr = b.log.Stderr()
	cmd.Env = append(os.Environ(), "QFU_VERBOSITY="+b.log.Level().String())

	b.log.Debugf("running command: %s", strings.Join(cmd.Args, " "))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", c.Command, err)
	}
	b.log.Infof("%s operation finished successfully", op)
	return nil
}

// checkImages makes sure every image is a readable regular file before a
// helper is started, reporting all bad images at once.
func checkImages(images []string, log *logger.Logger) error {
	var errs error
	for _, image := range images {
		info, err := os.Stat(image)
		switch {
		case err != nil:
			errs = multierr.Append(errs, fmt.Errorf("cannot access image: %w", err))
		case !info.Mode().IsRegular():
			errs = multierr.Append(errs, fmt.Errorf("image %s is not a regular file", image))
		case info.Size() == 0:
			log.Warnf("image %s is empty", image)
		}
	}
	return errs
}
