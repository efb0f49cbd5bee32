package torrouter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/t4weyhryjtey/tor-router/internal/fileutil"
	"github.com/t4weyhryjtey/tor-router/internal/metrics"
	"github.com/t4weyhryjtey/tor-router/internal/netutil"
	"github.com/t4weyhryjtey/tor-router/internal/torproc"
)

// Pool manages an ordered collection of tor instances: creation, removal,
// load-balanced selection, group views, and batched control operations.
//
// Order is significant — it is the rotation/selection order consumed by
// Next. Batch operations (Add, Exit, the *All forwarders) fan out
// concurrently and join with wait-for-all semantics: any single failure
// fails the whole call, without rollback of sub-operations that succeeded.
//
// All methods are safe for concurrent use. The pool provides no timeouts of
// its own; bound slow startups and control operations through ctx.
type Pool struct {
	cfg     poolConfig
	factory HandleFactory
	log     *slog.Logger
	ports   *netutil.PortRegistry

	mu        sync.Mutex
	instances []*Instance
	weighted  *weightedIndex // nil until built; discarded on membership change
	method    LoadBalanceMethod

	created []func(*Instance) // instance-created subscribers
}

// NewPool creates a Pool with the given options. No instances are started;
// use CreateInstance, Add, or Create.
func NewPool(opts ...Option) (*Pool, error) {
	cfg := defaultPoolConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	log := Logger()
	p := &Pool{
		cfg:     cfg,
		factory: cfg.HandleFactory,
		log:     log,
		ports:   netutil.NewPortRegistry(log),
		method:  cfg.Method,
	}
	if p.factory == nil {
		p.factory = p.torHandleFactory
	}
	return p, nil
}

// torHandleFactory is the built-in HandleFactory: one local tor process per
// instance, with ports drawn from the pool's shared registry.
func (p *Pool) torHandleFactory(params HandleParams) (Handle, error) {
	return torproc.New(torproc.Config{
		Binary:          params.TorPath,
		DataDir:         params.DataDir,
		Torrc:           params.Config,
		ControlPassword: p.cfg.ControlPassword,
		StartTimeout:    params.StartTimeout,
		StopTimeout:     params.StopTimeout,
		Ports:           p.ports,
		Logger:          params.Logger,
	})
}

// OnInstanceCreated registers a callback fired once per successfully created
// instance, after it has been appended to the pool. Intended for
// collaborators that attach to newly available instances (e.g., a routing
// front-end). Callbacks run synchronously on the creating goroutine and must
// not call back into the pool.
func (p *Pool) OnInstanceCreated(fn func(*Instance)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, fn)
}

// CreateInstance creates and starts one instance from the definition and
// appends it to the pool. It blocks until the instance's daemon is ready, or
// returns an error if startup fails — in which case the pool is unchanged.
//
// Returns ErrDuplicateName (before any resource is allocated) if the
// definition names an existing instance.
func (p *Pool) CreateInstance(ctx context.Context, def Definition) (*Instance, error) {
	if err := p.checkName(def.Name); err != nil {
		return nil, err
	}

	if err := fileutil.EnsureDir(p.cfg.BaseDataDir); err != nil {
		return nil, fmt.Errorf("ensure base data dir: %w", err)
	}

	def.Config = mergeTorConfig(p.cfg.torConfigTemplate(), def.Config)

	id := uuid.NewString()
	params := HandleParams{
		ID:           id,
		Name:         def.Name,
		DataDir:      filepath.Join(p.cfg.BaseDataDir, id),
		TorPath:      p.cfg.TorPath,
		Config:       def.Config,
		StartTimeout: p.cfg.StartTimeout,
		StopTimeout:  p.cfg.StopTimeout,
		Logger:       p.log.With("instance", instanceDesc(id, def.Name)),
	}
	handle, err := p.factory(params)
	if err != nil {
		return nil, fmt.Errorf("construct handle for instance %s: %w", instanceDesc(id, def.Name), err)
	}

	start := time.Now()
	if err := handle.Create(ctx); err != nil {
		metrics.InstanceStartupFailuresTotal.Inc()
		return nil, fmt.Errorf("instance %s: %w: %w", instanceDesc(id, def.Name), ErrInstanceStartup, err)
	}
	metrics.InstanceStartDuration.Observe(time.Since(start).Seconds())

	inst := newInstance(id, def, handle)

	p.mu.Lock()
	// Concurrent creations through Add may race on a name; the pre-check
	// above only catches collisions with already-registered instances.
	if def.Name != "" && p.lookupLocked(def.Name) != nil {
		p.mu.Unlock()
		if exitErr := handle.Exit(context.WithoutCancel(ctx)); exitErr != nil {
			p.log.Warn("stopping duplicate-named instance", "instance", instanceDesc(id, def.Name), "error", exitErr)
		}
		return nil, fmt.Errorf("instance %q: %w", def.Name, ErrDuplicateName)
	}
	p.instances = append(p.instances, inst)
	p.weighted = nil
	subscribers := make([]func(*Instance), len(p.created))
	copy(subscribers, p.created)
	p.mu.Unlock()

	metrics.InstancesCreatedTotal.Inc()
	metrics.InstancesCurrent.Inc()
	p.log.Info("instance created", "instance", instanceDesc(id, def.Name), "groups", def.Groups)

	for _, fn := range subscribers {
		fn(inst)
	}
	return inst, nil
}

// Add creates instances for all definitions in parallel and waits for all of
// them. Any single failure fails the whole call; instances that succeeded
// before the failing one completed stay in the pool (no rollback). On
// success the returned slice is ordered like defs.
func (p *Pool) Add(ctx context.Context, defs []Definition) ([]*Instance, error) {
	instances := make([]*Instance, len(defs))

	var g errgroup.Group
	for idx, def := range defs {
		idx, def := idx, def
		g.Go(func() error {
			inst, err := p.CreateInstance(ctx, def)
			if err != nil {
				return err
			}
			instances[idx] = inst
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return instances, nil
}

// Create adds count instances with empty definitions: unnamed, no
// configuration override, default weight, no groups.
func (p *Pool) Create(ctx context.Context, count int) ([]*Instance, error) {
	return p.Add(ctx, make([]Definition, count))
}

// Remove removes the first n instances in current pool order and exits each
// in parallel, waiting for all. If n exceeds the pool size the whole pool is
// removed. The instances leave the pool even if an exit fails; the failure
// is still reported.
func (p *Pool) Remove(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}

	p.mu.Lock()
	if n > len(p.instances) {
		n = len(p.instances)
	}
	removed := p.instances[:n]
	p.instances = p.instances[n:]
	p.weighted = nil
	p.mu.Unlock()

	return p.exitAll(ctx, removed)
}

// RemoveAt removes and exits the instance at the given pool-order index.
// Returns ErrNotFound if the index is out of range.
func (p *Pool) RemoveAt(ctx context.Context, index int) error {
	p.mu.Lock()
	if index < 0 || index >= len(p.instances) {
		p.mu.Unlock()
		return fmt.Errorf("index %d: %w", index, ErrNotFound)
	}
	inst := p.instances[index]
	p.removeLocked(index)
	p.mu.Unlock()

	return p.exitOne(ctx, inst)
}

// RemoveByName removes and exits the named instance. Returns ErrNotFound if
// no instance has that name; the pool is unchanged.
func (p *Pool) RemoveByName(ctx context.Context, name string) error {
	p.mu.Lock()
	index := -1
	for i, inst := range p.instances {
		if inst.name != "" && inst.name == name {
			index = i
			break
		}
	}
	if index < 0 {
		p.mu.Unlock()
		return fmt.Errorf("instance %q: %w", name, ErrNotFound)
	}
	inst := p.instances[index]
	p.removeLocked(index)
	p.mu.Unlock()

	return p.exitOne(ctx, inst)
}

// Exit removes and exits every instance in parallel, waiting for all. The
// pool is empty afterwards even if some exits fail; the first failure is
// still reported.
func (p *Pool) Exit(ctx context.Context) error {
	p.mu.Lock()
	removed := p.instances
	p.instances = nil
	p.weighted = nil
	p.mu.Unlock()

	return p.exitAll(ctx, removed)
}

// Next applies the current load balance method to reorder the pool and
// returns the instance selected by it. Returns ErrPoolEmpty if the pool
// holds no instances.
func (p *Pool) Next() (*Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.instances) == 0 {
		return nil, ErrPoolEmpty
	}

	var selected *Instance
	switch p.method {
	case Weighted:
		if p.weighted == nil {
			p.weighted = newWeightedIndex(p.instances)
		}
		p.instances = p.weighted.permutation()
		selected = p.instances[0]
	default: // RoundRobin
		selected = p.instances[0]
		p.instances = rotate(p.instances, 1)
	}

	metrics.SelectionsTotal.WithLabelValues(p.method.String()).Inc()
	return selected, nil
}

// LoadBalanceMethod returns the current selection strategy.
func (p *Pool) LoadBalanceMethod() LoadBalanceMethod {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.method
}

// SetLoadBalanceMethod switches the selection strategy used by Next.
// Returns an error if m is not a recognized method.
func (p *Pool) SetLoadBalanceMethod(m LoadBalanceMethod) error {
	if !m.IsValid() {
		return fmt.Errorf("invalid load balance method %v", m)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.method = m
	return nil
}

// Len returns the number of instances currently in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.instances)
}

// Instances returns a snapshot of the pool in current order.
func (p *Pool) Instances() []*Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Instance, len(p.instances))
	copy(out, p.instances)
	return out
}

// NewIdentities requests an anonymity-circuit rotation on every instance in
// parallel, waiting for all.
func (p *Pool) NewIdentities(ctx context.Context) error {
	return p.forEach(ctx, func(ctx context.Context, inst *Instance) error {
		return inst.NewIdentity(ctx)
	})
}

// NewIdentityAt requests an anonymity-circuit rotation on the instance at
// the given pool-order index.
func (p *Pool) NewIdentityAt(ctx context.Context, index int) error {
	inst, err := p.at(index)
	if err != nil {
		return err
	}
	return inst.NewIdentity(ctx)
}

// NewIdentityByName requests an anonymity-circuit rotation on the named
// instance.
func (p *Pool) NewIdentityByName(ctx context.Context, name string) error {
	inst, err := p.byName(name)
	if err != nil {
		return err
	}
	return inst.NewIdentity(ctx)
}

// GetConfigAt reads a configuration keyword from the instance at the given
// pool-order index.
func (p *Pool) GetConfigAt(ctx context.Context, index int, keyword string) ([]string, error) {
	inst, err := p.at(index)
	if err != nil {
		return nil, err
	}
	return inst.GetConfig(ctx, keyword)
}

// GetConfigByName reads a configuration keyword from the named instance.
func (p *Pool) GetConfigByName(ctx context.Context, name, keyword string) ([]string, error) {
	inst, err := p.byName(name)
	if err != nil {
		return nil, err
	}
	return inst.GetConfig(ctx, keyword)
}

// GetConfigAll reads a configuration keyword from every instance in
// parallel, waiting for all, and returns the values flattened in pool order.
func (p *Pool) GetConfigAll(ctx context.Context, keyword string) ([]string, error) {
	snapshot := p.Instances()
	results := make([][]string, len(snapshot))

	var g errgroup.Group
	for idx, inst := range snapshot {
		idx, inst := idx, inst
		g.Go(func() error {
			values, err := inst.GetConfig(ctx, keyword)
			if err != nil {
				return fmt.Errorf("instance %s: %w", instanceDesc(inst.id, inst.name), err)
			}
			results[idx] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []string
	for _, values := range results {
		flat = append(flat, values...)
	}
	return flat, nil
}

// SetConfigAt writes a configuration keyword on the instance at the given
// pool-order index.
func (p *Pool) SetConfigAt(ctx context.Context, index int, keyword, value string) error {
	inst, err := p.at(index)
	if err != nil {
		return err
	}
	return inst.SetConfig(ctx, keyword, value)
}

// SetConfigByName writes a configuration keyword on the named instance.
func (p *Pool) SetConfigByName(ctx context.Context, name, keyword, value string) error {
	inst, err := p.byName(name)
	if err != nil {
		return err
	}
	return inst.SetConfig(ctx, keyword, value)
}

// SetConfigAll writes a configuration keyword on every instance in parallel,
// waiting for all.
func (p *Pool) SetConfigAll(ctx context.Context, keyword, value string) error {
	return p.forEach(ctx, func(ctx context.Context, inst *Instance) error {
		return inst.SetConfig(ctx, keyword, value)
	})
}

// SignalAt sends a control signal to the instance at the given pool-order
// index.
func (p *Pool) SignalAt(ctx context.Context, index int, name string) error {
	inst, err := p.at(index)
	if err != nil {
		return err
	}
	return inst.Signal(ctx, name)
}

// SignalByName sends a control signal to the named instance.
func (p *Pool) SignalByName(ctx context.Context, instName, signal string) error {
	inst, err := p.byName(instName)
	if err != nil {
		return err
	}
	return inst.Signal(ctx, signal)
}

// SignalAll sends a control signal to every instance in parallel, waiting
// for all.
func (p *Pool) SignalAll(ctx context.Context, name string) error {
	return p.forEach(ctx, func(ctx context.Context, inst *Instance) error {
		return inst.Signal(ctx, name)
	})
}

// GroupNames returns the sorted set of group labels currently carried by any
// instance. Recomputed per call; never cached.
func (p *Pool) GroupNames() []string {
	seen := map[string]struct{}{}
	for _, inst := range p.Instances() {
		for _, g := range inst.Groups() {
			seen[g] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for g := range seen {
		names = append(names, g)
	}
	sort.Strings(names)
	return names
}

// Group returns the live view over instances carrying the given label. The
// view is read-through: it is recomputed from current pool membership and
// labels on every access, and its mutators act on the underlying instances.
func (p *Pool) Group(label string) *GroupView {
	return &GroupView{label: label, pool: p}
}

// checkName returns ErrDuplicateName if name is already in use. Empty names
// are always allowed.
func (p *Pool) checkName(name string) error {
	if name == "" {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lookupLocked(name) != nil {
		return fmt.Errorf("instance %q: %w", name, ErrDuplicateName)
	}
	return nil
}

// lookupLocked returns the named instance or nil. Caller holds p.mu.
func (p *Pool) lookupLocked(name string) *Instance {
	for _, inst := range p.instances {
		if inst.name != "" && inst.name == name {
			return inst
		}
	}
	return nil
}

// removeLocked removes the instance at index and invalidates the weighted
// cache. Caller holds p.mu.
func (p *Pool) removeLocked(index int) {
	p.instances = append(p.instances[:index], p.instances[index+1:]...)
	p.weighted = nil
}

// at returns the instance at the given pool-order index or ErrNotFound.
func (p *Pool) at(index int) (*Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if index < 0 || index >= len(p.instances) {
		return nil, fmt.Errorf("index %d: %w", index, ErrNotFound)
	}
	return p.instances[index], nil
}

// byName returns the named instance or ErrNotFound.
func (p *Pool) byName(name string) (*Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if inst := p.lookupLocked(name); inst != nil {
		return inst, nil
	}
	return nil, fmt.Errorf("instance %q: %w", name, ErrNotFound)
}

// forEach runs op against a snapshot of every instance in parallel and waits
// for all. The first failure is returned.
func (p *Pool) forEach(ctx context.Context, op func(context.Context, *Instance) error) error {
	var g errgroup.Group
	for _, inst := range p.Instances() {
		inst := inst
		g.Go(func() error {
			if err := op(ctx, inst); err != nil {
				return fmt.Errorf("instance %s: %w", instanceDesc(inst.id, inst.name), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// exitOne exits a single removed instance and updates the removal metrics.
func (p *Pool) exitOne(ctx context.Context, inst *Instance) error {
	metrics.InstancesRemovedTotal.Inc()
	metrics.InstancesCurrent.Dec()
	if err := inst.exit(ctx); err != nil {
		return fmt.Errorf("exit instance %s: %w", instanceDesc(inst.id, inst.name), err)
	}
	p.log.Info("instance removed", "instance", instanceDesc(inst.id, inst.name))
	return nil
}

// exitAll exits removed instances in parallel and waits for all.
func (p *Pool) exitAll(ctx context.Context, removed []*Instance) error {
	var g errgroup.Group
	for _, inst := range removed {
		inst := inst
		g.Go(func() error {
			return p.exitOne(ctx, inst)
		})
	}
	return g.Wait()
}

// instanceDesc renders an instance reference for logs and errors: the name
// when one exists, else a shortened id.
func instanceDesc(id, name string) string {
	if name != "" {
		return name
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
