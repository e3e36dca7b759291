// Package attach runs work inside a container by joining the namespaces of
// its leader process, without the container's service manager.
//
// Runner executes one command line under the container's shell and returns
// its exit status and captured output. Injector streams a host file into the
// container through a Runner. ShellLauncher starts a login shell, either
// replacing the calling process or as a child connected to the terminal.
//
// Commands never see the caller's environment unless the EnvPolicy allows
// it. The default gives them a safe PATH and nothing else:
//
//	runner := attach.NewRunner(nsenter.NewHost(), attach.Options{})
//	res, err := runner.Run(ctx, leader, attach.Request{Command: "cat /etc/os-release"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.ReturnCode, res.Stdout)
package attach
