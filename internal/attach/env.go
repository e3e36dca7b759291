package attach

import (
	"fmt"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"
)

// DefaultSafePath is the only PATH a command sees unless the caller opts in
// to more of its environment.
const DefaultSafePath = "/bin:/usr/bin:/sbin:/usr/sbin:/opt/bin:/usr/local/bin:/usr/local/sbin"

// EnvMode selects how much of the caller's environment reaches a command.
type EnvMode string

const (
	EnvNone        EnvMode = "none"
	EnvAllowlist   EnvMode = "allowlist"
	EnvPassthrough EnvMode = "passthrough"
)

// EnvPolicy is an environment mode plus, for EnvAllowlist, the variable
// names to carry over.
type EnvPolicy struct {
	Mode  EnvMode
	Names []string
}

// NoEnv strips everything but the safe PATH. It is the zero-value behaviour.
func NoEnv() EnvPolicy {
	return EnvPolicy{Mode: EnvNone}
}

// AllowEnv keeps only the named variables from the caller's environment.
func AllowEnv(names ...string) EnvPolicy {
	return EnvPolicy{Mode: EnvAllowlist, Names: names}
}

// PassthroughEnv hands the caller's environment over unchanged.
func PassthroughEnv() EnvPolicy {
	return EnvPolicy{Mode: EnvPassthrough}
}

// ParsePolicy builds a policy from its configuration form.
func ParsePolicy(mode string, names []string) (EnvPolicy, error) {
	switch EnvMode(mode) {
	case "", EnvNone:
		return NoEnv(), nil
	case EnvAllowlist:
		return AllowEnv(names...), nil
	case EnvPassthrough:
		return PassthroughEnv(), nil
	default:
		return EnvPolicy{}, fmt.Errorf("unknown environment policy %q (want none, allowlist or passthrough)", mode)
	}
}

func (p EnvPolicy) String() string {
	if p.Mode == EnvAllowlist {
		return fmt.Sprintf("allowlist(%s)", strings.Join(p.Names, ","))
	}
	if p.Mode == "" {
		return string(EnvNone)
	}
	return string(p.Mode)
}

// environment is the caller's side of policy resolution.
type environment struct {
	safePath  string
	lookupEnv func(string) (string, bool)
	environ   func() []string
}

func hostEnvironment(safePath string) environment {
	if safePath == "" {
		safePath = DefaultSafePath
	}
	return environment{
		safePath:  safePath,
		lookupEnv: os.LookupEnv,
		environ:   os.Environ,
	}
}

// variables resolves the policy to NAME=value pairs. PATH comes first. An
// allowlist naming PATH takes the caller's PATH instead of the safe one, and
// none at all when the caller has no PATH.
func (e environment) variables(p EnvPolicy) []string {
	if p.Mode == EnvPassthrough {
		return e.environ()
	}
	if p.Mode != EnvAllowlist {
		return []string{"PATH=" + e.safePath}
	}

	path := "PATH=" + e.safePath
	var vars []string
	for _, name := range p.Names {
		value, ok := e.lookupEnv(name)
		if name == "PATH" {
			path = ""
			if ok {
				path = "PATH=" + value
			}
			continue
		}
		if ok {
			vars = append(vars, name+"="+value)
		}
	}
	if path == "" {
		return vars
	}
	return append([]string{path}, vars...)
}

// commandLine wraps command so that it runs under the policy's environment
// only. Passthrough leaves the command untouched.
func (e environment) commandLine(p EnvPolicy, shell, command string) string {
	if p.Mode == EnvPassthrough {
		return command
	}

	parts := []string{"exec", "env", "-i"}
	for _, kv := range e.variables(p) {
		name, value, _ := strings.Cut(kv, "=")
		parts = append(parts, name+"="+shellquote.Join(value))
	}
	parts = append(parts, shellquote.Join(shell, "-c", command))
	return strings.Join(parts, " ")
}
