// Package testutil provides test fixtures and utilities.
//
// # Fake Hosts
//
// FakeProc builds a proc tree of plain files under a temp dir, and
// NewFakeHost attaches through it with a joiner that never calls setns(2).
// Commands "inside" such a container run on the test host as the current
// user, which is enough to exercise every path except the kernel join:
//
//	root := testutil.FakeProc(t, 4321)
//	joiner := &testutil.CountingJoiner{}
//	host := testutil.NewFakeHost(root, joiner)
//
// # Test Environments
//
// NewTestEnv wires a mock machine manager, a fake host and a root euid into
// an App and installs it as app.Default for the duration of the test:
//
//	env := testutil.NewTestEnv(t)
//	env.AddRunningMachine("web1")
//	env.MarkSystemd() // classify running machines as systemd-managed
//
// # Fixtures
//
// TOML configuration fixtures are embedded using go:embed:
//
//	fixtures/valid_config.toml
//	fixtures/invalid_config.toml
//	fixtures/unknown_key_config.toml
//
//	cfg, err := testutil.ValidConfig()
//	_, err = testutil.LoadConfigFixture("invalid_config.toml") // fails
package testutil
