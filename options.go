package vulpo

import "strconv"

// windowOptions collects the launch flags a WindowBuilder configures.
type windowOptions struct {
	headless  bool
	width     int
	height    int
	private   bool
	kiosk     bool
	devtools  bool
	extraArgs []string
}

// args renders the options into a Firefox command line. The boot page
// URI is appended by the caller as the final positional argument.
func (o *windowOptions) args(profileDir string) []string {
	args := []string{
		"--profile", profileDir,
		"--no-remote",
		"--new-instance",
	}
	if o.headless {
		args = append(args, "--headless")
	}
	if o.width > 0 && o.height > 0 {
		args = append(args,
			"--width", strconv.Itoa(o.width),
			"--height", strconv.Itoa(o.height))
	}
	if o.private {
		args = append(args, "--private-window")
	}
	if o.kiosk {
		args = append(args, "--kiosk")
	}
	if o.devtools {
		args = append(args, "--devtools")
	}
	args = append(args, o.extraArgs...)
	return args
}
