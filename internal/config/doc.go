// Package config provides configuration loading for nspctl.
//
// # Configuration File
//
// Settings are read from /etc/nspctl/config.toml (override with --config).
// A missing default file is not an error; every key has a built-in default:
//
//	safe_path      = "/bin:/usr/bin:/sbin:/usr/sbin:/opt/bin:/usr/local/bin:/usr/local/sbin"
//	proc_root      = "/proc"
//	machines_dir   = "/var/lib/machines"
//	state_dir      = "/var/lib/nspctl"
//	systemd_marker = "/run/systemd/system"
//	shell          = "/bin/sh"
//	shell_args     = ["-l"]
//	machinectl     = "machinectl"
//
//	[env]
//	policy = "none"        # none, allowlist, or passthrough
//	allow  = ["TERM"]      # names kept by the allowlist policy
//
// Unknown keys are rejected so that typos do not silently fall back to
// defaults.
//
// # Validation
//
// Config.Validate checks paths and the environment policy. Machine names given
// on the command line are checked with ValidateMachineName before they reach
// machinectl or the image directory.
package config
