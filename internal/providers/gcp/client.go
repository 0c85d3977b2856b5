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

// Package gcp implements the cloudbridge provider contracts for Google
// Cloud: Compute Engine, Cloud Storage and Cloud DNS.
package gcp

import (
	"context"
	"os"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	compute "google.golang.org/api/compute/v1"
	dns "google.golang.org/api/dns/v1"
	"google.golang.org/api/option"

	"github.com/CloudVE/cloudbridge-sub001/internal/config"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/common"
	"github.com/CloudVE/cloudbridge-sub001/internal/providers/contracts"
)

// Clients bundles the Google API clients used by the provider. The
// generated REST clients are used as they are; tests point them at an
// httptest server through endpoint options.
type Clients struct {
	Compute *compute.Service
	DNS     *dns.Service
	Storage *storage.Client
}

// Close releases the storage client
func (c *Clients) Close() error {
	if c.Storage == nil {
		return nil
	}
	return c.Storage.Close()
}

// NewClients builds the API clients from configuration. Credentials come
// from the service account file when one is configured and from
// Application Default Credentials otherwise.
func NewClients(ctx context.Context, cfg config.GCPConfig) (*Clients, error) {
	if cfg.Project == "" {
		return nil, contracts.NewInvalidConfigurationError("GCP_PROJECT_NAME is required", nil)
	}

	base := common.NewHTTPClient(logging.FromContext(ctx))
	var opts []option.ClientOption
	if cfg.WithoutAuthentication {
		opts = append(opts, option.WithHTTPClient(base))
	} else {
		creds, err := credentials(ctx, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		client := oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, base), creds.TokenSource)
		opts = append(opts, option.WithHTTPClient(client))
	}

	withEndpoint := func(endpoint string) []option.ClientOption {
		if endpoint == "" {
			return opts
		}
		return append(append([]option.ClientOption{}, opts...), option.WithEndpoint(endpoint))
	}

	computeService, err := compute.NewService(ctx, withEndpoint(cfg.ComputeEndpoint)...)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to create compute client", err)
	}
	dnsService, err := dns.NewService(ctx, withEndpoint(cfg.DNSEndpoint)...)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to create dns client", err)
	}
	// reads use the JSON API so that a storage endpoint override covers them too
	storageClient, err := storage.NewClient(ctx, append(withEndpoint(cfg.StorageEndpoint), storage.WithJSONReads())...)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to create storage client", err)
	}
	return &Clients{Compute: computeService, DNS: dnsService, Storage: storageClient}, nil
}

func credentials(ctx context.Context, file string) (*google.Credentials, error) {
	scopes := []string{compute.CloudPlatformScope}
	if file == "" {
		creds, err := google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, contracts.NewInvalidConfigurationError("no GCP credentials found; set GCP_SERVICE_CREDS_FILE", err)
		}
		return creds, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("failed to read GCP credentials file", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, contracts.NewInvalidConfigurationError("invalid GCP credentials file", err)
	}
	return creds, nil
}
