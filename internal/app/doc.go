// Package app provides the application context for nspctl.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Config   *config.Config  // Loaded configuration
//	    Machines machine.Manager // machinectl front end
//	    Host     *nsenter.Host   // Namespace attachment
//	    Geteuid  func() int      // Privilege check
//	}
//
// Runners, injectors, shell launchers, the operation journal and the
// Dispatcher are built from these on demand.
//
// # Creating an App
//
//	// Production usage
//	a := app.New(app.WithConfig(cfg))
//
//	// Testing with custom dependencies
//	a := app.New(
//	    app.WithConfig(testConfig),
//	    app.WithMachines(machine.NewMock()),
//	    app.WithHost(fakeHost),
//	    app.WithGeteuid(func() int { return 0 }),
//	)
//
// # Available Options
//
//	WithConfig(cfg)                 // Custom configuration
//	WithMachines(manager)           // Custom machine manager
//	WithHost(host)                  // Custom namespace host
//	WithGeteuid(fn)                 // Custom privilege check
//	WithShellExec(fn)               // Custom process replacement
//	WithGuestCommands(off, reboot)  // Raw-init shutdown commands
package app
