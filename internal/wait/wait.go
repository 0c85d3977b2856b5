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

// Package wait polls cloud resources until they reach a desired state.
package wait

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	kwait "k8s.io/apimachinery/pkg/util/wait"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/metrics"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

const (
	// DefaultTimeout bounds a wait when the caller does not
	DefaultTimeout = 600 * time.Second
	// DefaultInterval is the delay between two refreshes
	DefaultInterval = 5 * time.Second
)

var (
	defaultsMu      sync.RWMutex
	defaultTimeout  = DefaultTimeout
	defaultInterval = DefaultInterval
)

// SetDefaults changes the timeout and interval used when callers pass zero
func SetDefaults(timeout, interval time.Duration) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	if timeout > 0 {
		defaultTimeout = timeout
	}
	if interval > 0 {
		defaultInterval = interval
	}
}

func defaults() (time.Duration, time.Duration) {
	defaultsMu.RLock()
	defer defaultsMu.RUnlock()
	return defaultTimeout, defaultInterval
}

// StateFunc refreshes a resource and reports its current state
type StateFunc[S ~string] func(ctx context.Context) (S, error)

// WaitFor polls refresh until the state is one of targets. A state in
// terminals ends the wait with a WaitState error, as does the timeout.
// Retryable refresh errors are tolerated; any other error aborts the wait.
func WaitFor[S ~string](ctx context.Context, refresh StateFunc[S], targets, terminals []S, timeout, interval time.Duration) error {
	return waitFor(ctx, "resource", refresh, targets, terminals, timeout, interval)
}

func waitFor[S ~string](ctx context.Context, kind string, refresh StateFunc[S], targets, terminals []S, timeout, interval time.Duration) error {
	if len(targets) == 0 {
		return contracts.NewInvalidValueError("at least one target state is required", nil)
	}
	defTimeout, defInterval := defaults()
	if timeout <= 0 {
		timeout = defTimeout
	}
	if interval <= 0 {
		interval = defInterval
	}

	log := logging.FromContext(ctx).WithValues("kind", kind, "targets", targets)
	timer := metrics.NewTimer()

	var (
		last     S
		terminal bool
	)
	err := kwait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		state, err := refresh(ctx)
		if err != nil {
			if contracts.IsRetryable(err) {
				log.V(1).Info("Transient error while waiting", "error", err.Error())
				return false, nil
			}
			return false, err
		}
		last = state
		log.V(2).Info("Polled state", "state", state)
		if slices.Contains(targets, state) {
			return true, nil
		}
		if slices.Contains(terminals, state) {
			terminal = true
			return false, contracts.NewWaitStateError(
				fmt.Sprintf("%s reached terminal state %q while waiting for %v", kind, state, targets), nil)
		}
		return false, nil
	})

	switch {
	case err == nil:
		metrics.RecordWait(kind, metrics.OutcomeSuccess, timer.Duration())
		return nil
	case terminal:
		metrics.RecordWait(kind, metrics.OutcomeError, timer.Duration())
		return err
	case kwait.Interrupted(err):
		metrics.RecordWait(kind, metrics.OutcomeTimeout, timer.Duration())
		if ctx.Err() != nil {
			return contracts.NewWaitStateError(fmt.Sprintf("wait for %s cancelled in state %q", kind, last), ctx.Err())
		}
		return contracts.NewWaitStateError(
			fmt.Sprintf("%s did not reach %v within %s (last state %q)", kind, targets, timeout, last), err)
	default:
		metrics.RecordWait(kind, metrics.OutcomeError, timer.Duration())
		return err
	}
}

// Option tunes a typed wait
type Option func(*options)

type options struct {
	timeout  time.Duration
	interval time.Duration
}

// WithTimeout overrides the wait timeout
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithInterval overrides the refresh interval
func WithInterval(interval time.Duration) Option {
	return func(o *options) { o.interval = interval }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WaitForInstance waits until the instance is in target. Waiting for
// InstanceStateDeleted succeeds once the instance can no longer be found.
func WaitForInstance(ctx context.Context, svc contracts.InstanceService, id string, target contracts.InstanceState, opts ...Option) (*contracts.Instance, error) {
	o := buildOptions(opts)
	var inst *contracts.Instance
	refresh := func(ctx context.Context) (contracts.InstanceState, error) {
		got, err := svc.Get(ctx, id)
		if err != nil {
			if contracts.IsNotFound(err) && target == contracts.InstanceStateDeleted {
				return contracts.InstanceStateDeleted, nil
			}
			return "", err
		}
		inst = got
		return got.State, nil
	}
	terminals := without([]contracts.InstanceState{contracts.InstanceStateError, contracts.InstanceStateDeleted}, target)
	err := waitFor(ctx, "instance", refresh, []contracts.InstanceState{target}, terminals, o.timeout, o.interval)
	return inst, err
}

// WaitForVolume waits until the volume is in target
func WaitForVolume(ctx context.Context, svc contracts.VolumeService, id string, target contracts.VolumeState, opts ...Option) (*contracts.Volume, error) {
	o := buildOptions(opts)
	var vol *contracts.Volume
	refresh := func(ctx context.Context) (contracts.VolumeState, error) {
		got, err := svc.Get(ctx, id)
		if err != nil {
			if contracts.IsNotFound(err) && target == contracts.VolumeStateDeleted {
				return contracts.VolumeStateDeleted, nil
			}
			return "", err
		}
		vol = got
		return got.State, nil
	}
	terminals := without([]contracts.VolumeState{contracts.VolumeStateError, contracts.VolumeStateDeleted}, target)
	err := waitFor(ctx, "volume", refresh, []contracts.VolumeState{target}, terminals, o.timeout, o.interval)
	return vol, err
}

// WaitForSnapshot waits until the snapshot is in target
func WaitForSnapshot(ctx context.Context, svc contracts.SnapshotService, id string, target contracts.SnapshotState, opts ...Option) (*contracts.Snapshot, error) {
	o := buildOptions(opts)
	var snap *contracts.Snapshot
	refresh := func(ctx context.Context) (contracts.SnapshotState, error) {
		got, err := svc.Get(ctx, id)
		if err != nil {
			return "", err
		}
		snap = got
		return got.State, nil
	}
	terminals := without([]contracts.SnapshotState{contracts.SnapshotStateError}, target)
	err := waitFor(ctx, "snapshot", refresh, []contracts.SnapshotState{target}, terminals, o.timeout, o.interval)
	return snap, err
}

// WaitForImage waits until the machine image is in target
func WaitForImage(ctx context.Context, svc contracts.ImageService, id string, target contracts.MachineImageState, opts ...Option) (*contracts.MachineImage, error) {
	o := buildOptions(opts)
	var img *contracts.MachineImage
	refresh := func(ctx context.Context) (contracts.MachineImageState, error) {
		got, err := svc.Get(ctx, id)
		if err != nil {
			return "", err
		}
		img = got
		return got.State, nil
	}
	terminals := without([]contracts.MachineImageState{contracts.MachineImageStateError}, target)
	err := waitFor(ctx, "image", refresh, []contracts.MachineImageState{target}, terminals, o.timeout, o.interval)
	return img, err
}

func without[S comparable](states []S, target S) []S {
	return slices.DeleteFunc(states, func(s S) bool { return s == target })
}
