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

// Package inventory counts the resources a provider holds, walking every
// listing to the end, and exports the counts as Prometheus gauges.
package inventory

import (
	"context"
	"sync"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	kwait "k8s.io/apimachinery/pkg/util/wait"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/metrics"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// DefaultPageSize is the page size used while walking listings
const DefaultPageSize = 50

// Count is the number of resources of one kind
type Count struct {
	Kind  contracts.ServiceType `json:"kind" yaml:"kind"`
	Count int                   `json:"count" yaml:"count"`
	Error string                `json:"error,omitempty" yaml:"error,omitempty"`
}

// Report is one inventory pass over a provider
type Report struct {
	Provider contracts.ProviderType `json:"provider" yaml:"provider"`
	Region   string                 `json:"region" yaml:"region"`
	Taken    time.Time              `json:"taken" yaml:"taken"`
	Counts   []Count                `json:"counts" yaml:"counts"`
}

// Total sums the counts of every kind
func (r *Report) Total() int {
	total := 0
	for _, c := range r.Counts {
		total += c.Count
	}
	return total
}

// Collector walks the services of one provider
type Collector struct {
	provider contracts.Provider
	pageSize int
	now      func() time.Time

	mu   sync.RWMutex
	last *Report
}

// NewCollector creates a collector. A pageSize of zero uses DefaultPageSize.
func NewCollector(provider contracts.Provider, pageSize int) *Collector {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Collector{provider: provider, pageSize: pageSize, now: time.Now}
}

type counter func(ctx context.Context) (int, error)

func countAll[T any](lister paging.Lister[T], pageSize int) counter {
	return func(ctx context.Context) (int, error) {
		items, err := paging.All(ctx, lister, pageSize)
		return len(items), err
	}
}

type kindCounter struct {
	kind  contracts.ServiceType
	count counter
}

// counters lists the kinds the provider supports. Catalogue kinds (VM
// types, regions) are left out.
func (c *Collector) counters() []kindCounter {
	p, size := c.provider, c.pageSize
	var out []kindCounter
	add := func(kind contracts.ServiceType, count counter) {
		if p.HasService(kind) {
			out = append(out, kindCounter{kind, count})
		}
	}

	add(contracts.ServiceInstances, countAll(p.Compute().Instances.List, size))
	add(contracts.ServiceImages, countAll(p.Compute().Images.List, size))
	add(contracts.ServiceVolumes, countAll(p.Storage().Volumes.List, size))
	add(contracts.ServiceSnapshots, countAll(p.Storage().Snapshots.List, size))
	add(contracts.ServiceBuckets, countAll(p.Storage().Buckets.List, size))
	add(contracts.ServiceNetworks, countAll(p.Networking().Networks.List, size))
	add(contracts.ServiceSubnets, countAll(p.Networking().Subnets.List, size))
	add(contracts.ServiceRouters, countAll(p.Networking().Routers.List, size))
	add(contracts.ServiceFloatingIPs, countAll(p.Networking().FloatingIPs.List, size))
	add(contracts.ServiceKeyPairs, countAll(p.Security().KeyPairs.List, size))
	add(contracts.ServiceVMFirewalls, countAll(p.Security().VMFirewalls.List, size))
	add(contracts.ServiceDNSZones, countAll(p.DNS().Zones.List, size))
	add(contracts.ServiceDNSRecords, c.countRecords)
	return out
}

// countRecords sums the records of every zone
func (c *Collector) countRecords(ctx context.Context) (int, error) {
	dns := c.provider.DNS()
	zones, err := paging.All(ctx, dns.Zones.List, c.pageSize)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, zone := range zones {
		zoneID := zone.ID
		records, err := paging.All(ctx, func(ctx context.Context, opts paging.ListOptions) (*paging.ResultList[*contracts.DNSRecord], error) {
			return dns.Records.List(ctx, zoneID, opts)
		}, c.pageSize)
		if err != nil {
			return total, err
		}
		total += len(records)
	}
	return total, nil
}

// Collect runs one pass. A failing kind is reported in its Count and in
// the returned aggregate error; the other kinds are still counted.
func (c *Collector) Collect(ctx context.Context) (*Report, error) {
	log := logging.FromContext(logging.WithProvider(ctx, string(c.provider.Type()), c.provider.Region()))
	report := &Report{Provider: c.provider.Type(), Region: c.provider.Region(), Taken: c.now()}
	providerName := string(c.provider.Type())

	var errs []error
	for _, entry := range c.counters() {
		n, err := entry.count(ctx)
		count := Count{Kind: entry.kind, Count: n}
		if err != nil {
			count.Error = err.Error()
			errs = append(errs, err)
			metrics.RecordInventoryError(providerName, string(entry.kind))
			log.Error(err, "Inventory listing failed", "kind", entry.kind)
		} else {
			metrics.SetInventoryCount(providerName, string(entry.kind), n)
		}
		report.Counts = append(report.Counts, count)
	}
	log.V(1).Info("Inventory collected", "kinds", len(report.Counts), "total", report.Total())

	c.mu.Lock()
	c.last = report
	c.mu.Unlock()
	return report, utilerrors.NewAggregate(errs)
}

// Last returns the most recent report, or nil before the first pass
func (c *Collector) Last() *Report {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Run collects every interval until ctx is done. onReport, when set, sees
// each report, including partial ones.
func (c *Collector) Run(ctx context.Context, interval time.Duration, onReport func(*Report, error)) {
	kwait.UntilWithContext(ctx, func(ctx context.Context) {
		report, err := c.Collect(ctx)
		if onReport != nil {
			onReport(report, err)
		}
	}, interval)
}
