// Package torrouter manages a pool of tor daemon instances and exposes a
// single control surface to create, load-balance across, group, reconfigure,
// and tear them down.
//
// Consumers (a routing front-end, a CLI, or an API layer) ask the pool for
// the next instance to use, or address a specific instance by name, index,
// or group, without tracking process lifecycles or selection fairness
// themselves. Each instance is one tor process with an exclusive data
// directory and an authenticated control session; the pool allocates ports,
// renders the torrc, and supervises startup and shutdown.
//
// # Basic Usage
//
//	import torrouter "github.com/t4weyhryjtey/tor-router"
//
//	ctx := context.Background()
//
//	pool, err := torrouter.NewPool(
//	    torrouter.WithDefaultTorConfig(map[string]string{"MaxCircuitDirtiness": "600"}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer pool.Exit(context.Background())
//
//	if _, err := pool.Create(ctx, 3); err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := pool.Next()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Route traffic through inst's SOCKS port...
//
// # Selection
//
// Next reorders the pool by the configured load balance method and returns
// the selected instance. RoundRobin cycles through the pool in a fixed
// order; Weighted draws a weighted random permutation per selection, biased
// by each definition's Weight.
//
// # Groups
//
// Instances carry string labels. Pool.Group returns a live view over the
// instances sharing a label; views are recomputed per access and their
// mutators edit the underlying instances, so they never go stale.
//
// # Concurrency
//
// All Pool methods are safe for concurrent use. Batch operations (Add, Exit,
// NewIdentities, the *All forwarders) fan out in parallel and wait for all
// sub-operations; any single failure fails the whole call, and already
// completed sub-operations are not rolled back.
package torrouter
