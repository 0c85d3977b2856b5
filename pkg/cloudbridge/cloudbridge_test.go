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

package cloudbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/paging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

func TestSupportedProviders(t *testing.T) {
	assert.Equal(t, []ProviderType{AWS, Azure, GCP, Mock, OpenStack}, SupportedProviders())
}

func TestNewProvider_CachesPerProfile(t *testing.T) {
	ctx := context.Background()

	first, err := NewProvider(ctx, Mock, nil)
	require.NoError(t, err)
	second, err := NewProvider(ctx, Mock, nil)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := NewProfileProvider(ctx, Mock, "staging", nil)
	require.NoError(t, err)
	assert.NotSame(t, first, other)

	page, err := first.Compute().Images.List(ctx, paging.ListOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, page.Items)
}

func TestNewProvider_UnknownType(t *testing.T) {
	_, err := NewProvider(context.Background(), ProviderType("digitalocean"), nil)
	assert.True(t, contracts.IsInvalidConfiguration(err))
}

func TestNewProvider_MissingCredentials(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers.GCP.Project = ""

	_, err := NewProfileProvider(context.Background(), GCP, "no-project", cfg)
	require.Error(t, err)
	assert.True(t, contracts.IsInvalidConfiguration(err))
}
