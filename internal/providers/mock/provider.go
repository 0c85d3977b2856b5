/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package mock provides an in-memory provider implementation for testing and demos.
package mock

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// DefaultRegion is the region reported by the mock provider
	DefaultRegion = "mock-region-1"
	// DefaultZone is the default placement zone
	DefaultZone = "mock-region-1a"
)

// Provider implements an in-memory cloud for testing and demos.
type Provider struct {
	mu     sync.Mutex
	caller *common.Caller

	region      string
	zone        string
	failureMode string
	slowMode    bool
	settleDelay time.Duration
	now         func() time.Time
	seq         int
	pending     []transition

	instances  *table[contracts.Instance]
	vmTypes    *table[contracts.VMType]
	regions    *table[contracts.Region]
	images     *table[contracts.MachineImage]
	volumes    *table[contracts.Volume]
	snapshots  *table[contracts.Snapshot]
	buckets    *table[contracts.Bucket]
	objects    map[string]*table[object]
	networks   *table[contracts.Network]
	subnets    *table[contracts.Subnet]
	routers    *table[contracts.Router]
	gateways   *table[contracts.InternetGateway]
	fips       *table[contracts.FloatingIP]
	keyPairs   *table[contracts.KeyPair]
	firewalls  *table[contracts.VMFirewall]
	dnsZones   *table[contracts.DNSZone]
	dnsRecords map[string]*table[contracts.DNSRecord]

	compute    *contracts.ComputeServices
	storage    *contracts.StorageServices
	networking *contracts.NetworkingServices
	security   *contracts.SecurityServices
	dns        *contracts.DNSServices
}

// transition is a state change that becomes visible once its time has come
type transition struct {
	at    time.Time
	apply func()
}

// Option configures a mock provider
type Option func(*Provider)

// WithFailureMode makes the named operation (or "all") fail
func WithFailureMode(mode string) Option {
	return func(p *Provider) { p.failureMode = mode }
}

// WithSlowMode adds a random delay to every call
func WithSlowMode(slow bool) Option {
	return func(p *Provider) { p.slowMode = slow }
}

// WithSettleDelay sets how long resources stay in transitional states
func WithSettleDelay(d time.Duration) Option {
	return func(p *Provider) { p.settleDelay = d }
}

// WithClock replaces the clock used for state transitions
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithConfig applies library configuration (retry and circuit breaker)
func WithConfig(cfg *config.Config) Option {
	return func(p *Provider) { p.caller = common.NewCaller(contracts.ProviderMock, cfg, nil) }
}

// New is the registry factory for the mock provider. MOCK_FAILURE_MODE and
// MOCK_SLOW_MODE tune its behaviour.
func New(ctx context.Context, cfg *config.Config) (contracts.Provider, error) {
	return NewProvider(
		WithConfig(cfg),
		WithFailureMode(os.Getenv("MOCK_FAILURE_MODE")),
		WithSlowMode(os.Getenv("MOCK_SLOW_MODE") == "true"),
	), nil
}

// NewProvider creates a new mock provider with sample regions, sizes and images.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{
		region:     DefaultRegion,
		zone:       DefaultZone,
		now:        time.Now,
		instances:  newTable[contracts.Instance](),
		vmTypes:    newTable[contracts.VMType](),
		regions:    newTable[contracts.Region](),
		images:     newTable[contracts.MachineImage](),
		volumes:    newTable[contracts.Volume](),
		snapshots:  newTable[contracts.Snapshot](),
		buckets:    newTable[contracts.Bucket](),
		objects:    make(map[string]*table[object]),
		networks:   newTable[contracts.Network](),
		subnets:    newTable[contracts.Subnet](),
		routers:    newTable[contracts.Router](),
		gateways:   newTable[contracts.InternetGateway](),
		fips:       newTable[contracts.FloatingIP](),
		keyPairs:   newTable[contracts.KeyPair](),
		firewalls:  newTable[contracts.VMFirewall](),
		dnsZones:   newTable[contracts.DNSZone](),
		dnsRecords: make(map[string]*table[contracts.DNSRecord]),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.caller == nil {
		p.caller = common.NewCaller(contracts.ProviderMock, nil, nil)
	}

	p.compute = &contracts.ComputeServices{
		Instances: &instanceService{p},
		VMTypes:   &vmTypeService{p},
		Regions:   &regionService{p},
		Images:    &imageService{p},
	}
	p.storage = &contracts.StorageServices{
		Volumes:   &volumeService{p},
		Snapshots: &snapshotService{p},
		Buckets:   &bucketService{p, &objectService{p}},
	}
	p.networking = &contracts.NetworkingServices{
		Networks:    &networkService{p},
		Subnets:     &subnetService{p},
		Routers:     &routerService{p},
		Gateways:    &gatewayService{p},
		FloatingIPs: &floatingIPService{p},
	}
	p.security = &contracts.SecurityServices{
		KeyPairs:    &keyPairService{p},
		VMFirewalls: &vmFirewallService{p, &firewallRuleService{p}},
	}
	p.dns = &contracts.DNSServices{
		Zones:   &dnsZoneService{p},
		Records: &dnsRecordService{p},
	}

	p.createSampleData()
	return p
}

// createSampleData seeds the catalogue resources every cloud has.
func (p *Provider) createSampleData() {
	created := p.now().Add(-24 * time.Hour)
	for _, r := range []string{DefaultRegion, "mock-region-2"} {
		p.regions.put(r, &contracts.Region{
			Resource: contracts.Resource{ID: r, Name: r},
			Zones: []contracts.PlacementZone{
				{ID: r + "a", Name: r + "a", RegionName: r},
				{ID: r + "b", Name: r + "b", RegionName: r},
			},
		})
	}

	sizes := []struct {
		name  string
		vcpus int
		ram   float64
		disk  int
	}{
		{"m1.small", 1, 2, 20},
		{"m1.medium", 2, 4, 40},
		{"m1.large", 4, 8, 80},
		{"m1.xlarge", 8, 16, 160},
	}
	for _, s := range sizes {
		p.vmTypes.put(s.name, &contracts.VMType{
			Resource:       contracts.Resource{ID: s.name, Name: s.name},
			Family:         "m1",
			VCPUs:          s.vcpus,
			RAMGB:          s.ram,
			SizeRootDiskGB: s.disk,
		})
	}

	for _, img := range []string{"ubuntu-22-04", "debian-12", "rocky-9"} {
		id := "img-" + img
		p.images.put(id, &contracts.MachineImage{
			Resource:    contracts.Resource{ID: id, Name: img, Label: img, CreateTime: created},
			Description: "Sample " + img + " image",
			State:       contracts.MachineImageStateAvailable,
			MinDiskGB:   10,
			OwnerID:     "mock",
		})
	}
}

// Type implements contracts.Provider
func (p *Provider) Type() contracts.ProviderType { return contracts.ProviderMock }

// Region implements contracts.Provider
func (p *Provider) Region() string { return p.region }

// Zone implements contracts.Provider
func (p *Provider) Zone() string { return p.zone }

// Authenticate implements contracts.Provider
func (p *Provider) Authenticate(ctx context.Context) error {
	return p.caller.Do(ctx, contracts.ServiceCompute, "authenticate", "", func(ctx context.Context) error {
		p.simulateDelay()
		if p.shouldFail("authenticate") {
			return contracts.NewUnauthorizedError("mock provider configured to reject credentials", nil)
		}
		return nil
	})
}

// HasService implements contracts.Provider; the mock supports everything
func (p *Provider) HasService(service contracts.ServiceType) bool {
	return slices.Contains(contracts.AllServices, service)
}

// Compute implements contracts.Provider
func (p *Provider) Compute() *contracts.ComputeServices { return p.compute }

// Storage implements contracts.Provider
func (p *Provider) Storage() *contracts.StorageServices { return p.storage }

// Networking implements contracts.Provider
func (p *Provider) Networking() *contracts.NetworkingServices { return p.networking }

// Security implements contracts.Provider
func (p *Provider) Security() *contracts.SecurityServices { return p.security }

// DNS implements contracts.Provider
func (p *Provider) DNS() *contracts.DNSServices { return p.dns }

// do runs fn under the provider lock as the vendor call service.operation
func (p *Provider) do(ctx context.Context, service contracts.ServiceType, operation, id string, fn func() error) error {
	return p.caller.Do(ctx, service, operation, id, func(ctx context.Context) error {
		p.simulateDelay()
		if p.shouldFail(operation) {
			return contracts.NewProviderInternalError(fmt.Sprintf("mock provider configured to fail %s operations", operation), nil)
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		p.settle()
		return fn()
	})
}

// schedule applies fn once the settle delay has passed. Callers hold p.mu.
func (p *Provider) schedule(fn func()) {
	p.pending = append(p.pending, transition{at: p.now().Add(p.settleDelay), apply: fn})
}

// settle applies due transitions. Callers hold p.mu.
func (p *Provider) settle() {
	now := p.now()
	remaining := p.pending[:0]
	var due []transition
	for _, t := range p.pending {
		if !t.at.After(now) {
			due = append(due, t)
		} else {
			remaining = append(remaining, t)
		}
	}
	p.pending = remaining
	for _, t := range due {
		t.apply()
	}
}

// generateID generates a unique ID with the given prefix. Callers hold p.mu.
func (p *Provider) generateID(prefix string) string {
	p.seq++
	return fmt.Sprintf("%s-%06d", prefix, p.seq)
}

// shouldFail checks if the provider should fail for the given operation.
func (p *Provider) shouldFail(operation string) bool {
	if p.failureMode == "" {
		return false
	}
	return p.failureMode == operation || p.failureMode == "all"
}

// simulateDelay simulates network/processing delay if slow mode is enabled.
func (p *Provider) simulateDelay() {
	if p.slowMode {
		delay := time.Duration(rand.Intn(500)+100) * time.Millisecond
		time.Sleep(delay)
	}
}

// table is an in-memory collection that lists in insertion order
type table[T any] struct {
	items map[string]*T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{items: make(map[string]*T)}
}

func (t *table[T]) put(id string, item *T) {
	if _, ok := t.items[id]; !ok {
		t.order = append(t.order, id)
	}
	t.items[id] = item
}

func (t *table[T]) get(id string) (*T, bool) {
	item, ok := t.items[id]
	return item, ok
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.items[id]; !ok {
		return false
	}
	delete(t.items, id)
	t.order = slices.DeleteFunc(t.order, func(s string) bool { return s == id })
	return true
}

func (t *table[T]) values() []*T {
	out := make([]*T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.items[id])
	}
	return out
}

func (t *table[T]) len() int { return len(t.items) }

// snapshotOf returns copies so callers cannot mutate provider state
func snapshotOf[T any](items []*T) []*T {
	out := make([]*T, len(items))
	for i, item := range items {
		out[i] = cloneOf(item)
	}
	return out
}

func cloneOf[T any](item *T) *T {
	c := *item
	return &c
}
