package config

// Command describes an external helper program.
// - Command: executable name or path, looked up in $PATH when not absolute.
// - Args: arguments placed before the ones the tool adds itself.
type Command struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Configured reports whether a helper program was set.
func (c Command) Configured() bool {
	return c.Command != ""
}

// Operations maps every action to the helper that carries it out.
type Operations struct {
	Update    Command `yaml:"update"`
	UpdateQDL Command `yaml:"update_qdl"`
	Verify    Command `yaml:"verify"`
}

// Config is the top-level structure of the optional YAML configuration file.
// - SysfsRoot/DevRoot: where USB devices and their device nodes are looked up.
// - WorkDir: parent directory for unpacked image bundles (OS temp dir if empty).
// - UnpackBundles: same as --unpack-bundles.
// - Operations: back-end helpers per action.
type Config struct {
	SysfsRoot     string     `yaml:"sysfs_root"`
	DevRoot       string     `yaml:"dev_root"`
	WorkDir       string     `yaml:"work_dir"`
	UnpackBundles bool       `yaml:"unpack_bundles"`
	Operations    Operations `yaml:"operations"`
}
