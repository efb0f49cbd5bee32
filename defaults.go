package torrouter

import "time"

// Default configuration values for NewPool.
// These constants are exported so callers can reference the defaults
// when building custom configurations relative to them (e.g.,
// 2 * DefaultStartTimeout).
const (
	// DefaultTorPath is the binary name used to locate tor in PATH.
	DefaultTorPath = "tor"

	// DefaultLoadBalanceMethod is the selection strategy used by Next when
	// none is configured via WithLoadBalanceMethod.
	DefaultLoadBalanceMethod = RoundRobin

	// DefaultWeight is the weight assigned to instances whose definition
	// does not carry a positive Weight. Under the Weighted method every
	// instance therefore starts with an equal chance until weights are set.
	DefaultWeight = 1

	// DefaultStartTimeout is the maximum time allowed for an instance's tor
	// daemon to start and expose an authenticated control session. Tor
	// bootstrapping routinely takes tens of seconds on a cold data
	// directory.
	DefaultStartTimeout = 3 * time.Minute

	// DefaultStopTimeout is the maximum time allowed for an instance's tor
	// daemon to stop gracefully before it is killed.
	DefaultStopTimeout = 10 * time.Second

	// DefaultBaseDataDirName is the directory name under the system temp
	// directory where instance data is stored. The full path is computed
	// as filepath.Join(os.TempDir(), DefaultBaseDataDirName).
	DefaultBaseDataDirName = "tor-router"
)
