package dispatch

import (
	"fmt"

	"qmi-firmware-update/internal/bundle"
	"qmi-firmware-update/internal/logger"
	"qmi-firmware-update/internal/operation"
	"qmi-firmware-update/internal/options"
	"qmi-firmware-update/internal/udev"
)

// OperationError reports that the back end ran and failed.
type OperationError struct {
	Op  string
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// DeviceResolver picks the device node an update runs against.
// *resolver.Resolver implements it.
type DeviceResolver interface {
	Resolve(sel options.Selection, t udev.NodeType) (string, error)
}

// Dispatcher runs exactly one operation per request.
type Dispatcher struct {
	resolver DeviceResolver
	backend  operation.Backend
	workDir  string
	log      *logger.Logger
}

// New returns a Dispatcher. workDir is the parent of bundle staging
// directories; empty means the OS temp dir.
func New(r DeviceResolver, b operation.Backend, workDir string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{resolver: r, backend: b, workDir: workDir, log: log}
}

// Run resolves the device when the action needs one, unpacks bundles when
// requested and then calls the back end once. The first failure ends the
// run; nothing is retried.
func (d *Dispatcher) Run(req options.Request) error {
	var (
		device string
		err    error
	)
	switch a := req.Action.(type) {
	case options.Update:
		device, err = d.resolver.Resolve(a.Selection, udev.ControlNode)
	case options.UpdateQDL:
		device, err = d.resolver.Resolve(a.Selection, udev.TTYNode)
	}
	if err != nil {
		return err
	}

	images := req.Images
	if req.UnpackBundles {
		staged, cleanup, err := bundle.Stage(images, d.workDir, d.log)
		if err != nil {
			return err
		}
		defer cleanup()
		images = staged
	}

	d.log.Debugf("running %s operation with %d image(s)", req.Action.Name(), len(images))

	switch a := req.Action.(type) {
	case options.Update:
		err = d.backend.Update(operation.UpdateParams{
			Images:          images,
			Device:          device,
			FirmwareVersion: a.FirmwareVersion,
			ConfigVersion:   a.ConfigVersion,
			Carrier:         a.Carrier,
			ViaProxy:        a.ViaProxy,
			ViaMBIM:         a.ViaMBIM,
		})
	case options.UpdateQDL:
		err = d.backend.UpdateQDL(images, device)
	case options.Verify:
		err = d.backend.Verify(images)
	default:
		return fmt.Errorf("unsupported action %T", req.Action)
	}
	if err != nil {
		return &OperationError{Op: req.Action.Name(), Err: err}
	}
	return nil
}
