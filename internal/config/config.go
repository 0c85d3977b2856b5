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

package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v2"

	"github.com/CloudVE/cloudbridge-sub001/internal/obs/logging"
	"github.com/CloudVE/cloudbridge-sub001/internal/obs/tracing"
	"github.com/CloudVE/cloudbridge-sub001/internal/resilience"
)

// Config holds all configuration for cloudbridge
type Config struct {
	// Logging configuration
	Log logging.Config `yaml:"log"`

	// Tracing configuration
	Tracing tracing.Config `yaml:"tracing"`

	// Retry configuration for vendor calls
	Retry resilience.RetryConfig `yaml:"retry"`

	// Circuit breaker configuration for vendor calls
	CircuitBreaker resilience.Config `yaml:"circuitBreaker"`

	// Defaults for paging and waits
	Defaults DefaultsConfig `yaml:"defaults"`

	// Providers holds per-vendor connection settings
	Providers ProvidersConfig `yaml:"providers"`
}

// DefaultsConfig holds library-wide defaults
type DefaultsConfig struct {
	ResultLimit  int           `yaml:"resultLimit"`
	WaitTimeout  time.Duration `yaml:"waitTimeout"`
	WaitInterval time.Duration `yaml:"waitInterval"`
}

// ProvidersConfig holds the settings of every supported vendor
type ProvidersConfig struct {
	AWS       AWSConfig       `yaml:"aws"`
	Azure     AzureConfig     `yaml:"azure"`
	GCP       GCPConfig       `yaml:"gcp"`
	OpenStack OpenStackConfig `yaml:"openstack"`
}

// AWSConfig holds AWS settings
type AWSConfig struct {
	AccessKey    string `yaml:"accessKey"`
	SecretKey    string `yaml:"secretKey"`
	SessionToken string `yaml:"sessionToken"`
	Region       string `yaml:"region"`
	Zone         string `yaml:"zone"`
	EC2Endpoint  string `yaml:"ec2EndpointURL"`
	S3Endpoint   string `yaml:"s3EndpointURL"`
}

// AzureConfig holds Azure settings
type AzureConfig struct {
	SubscriptionID     string `yaml:"subscriptionID"`
	ClientID           string `yaml:"clientID"`
	Secret             string `yaml:"secret"`
	Tenant             string `yaml:"tenant"`
	ResourceGroup      string `yaml:"resourceGroup"`
	Region             string `yaml:"region"`
	Zone               string `yaml:"zone"`
	StorageAccount     string `yaml:"storageAccount"`
	VMDefaultUserName  string `yaml:"vmDefaultUserName"`
	PublicKeyTableName string `yaml:"publicKeyStorageTableName"`
}

// GCPConfig holds Google Cloud settings
type GCPConfig struct {
	Project         string `yaml:"project"`
	CredentialsFile string `yaml:"credentialsFile"`
	Region          string `yaml:"region"`
	Zone            string `yaml:"zone"`
	// Endpoint overrides are used against emulators and test servers
	ComputeEndpoint       string `yaml:"computeEndpoint"`
	StorageEndpoint       string `yaml:"storageEndpoint"`
	DNSEndpoint           string `yaml:"dnsEndpoint"`
	WithoutAuthentication bool   `yaml:"withoutAuthentication"`
}

// OpenStackConfig holds OpenStack settings
type OpenStackConfig struct {
	AuthURL           string `yaml:"authURL"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	ProjectName       string `yaml:"projectName"`
	ProjectDomainName string `yaml:"projectDomainName"`
	UserDomainName    string `yaml:"userDomainName"`
	Region            string `yaml:"region"`
	Zone              string `yaml:"zone"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Log:            *logging.DefaultConfig(),
		Tracing:        *tracing.DefaultConfig(tracing.ServiceCLI, ""),
		Retry:          *resilience.DefaultRetryConfig(),
		CircuitBreaker: *resilience.DefaultConfig(),
		Defaults: DefaultsConfig{
			ResultLimit:  50,
			WaitTimeout:  600 * time.Second,
			WaitInterval: 5 * time.Second,
		},
		Providers: ProvidersConfig{
			AWS: AWSConfig{
				Region: "us-east-1",
			},
			Azure: AzureConfig{
				Region:            "eastus",
				ResourceGroup:     "cloudbridge",
				VMDefaultUserName: "cbuser",
			},
			GCP: GCPConfig{
				Region: "us-central1",
				Zone:   "us-central1-a",
			},
			OpenStack: OpenStackConfig{
				ProjectDomainName: "Default",
				UserDomainName:    "Default",
			},
		},
	}
}

// Load builds a configuration from defaults, an optional YAML file and the
// environment, in increasing order of precedence
func Load(configFile string) (*Config, error) {
	config := DefaultConfig()
	if configFile != "" {
		if err := loadFromFile(configFile, config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}
	applyEnv(config)
	return config, nil
}

// Manager manages configuration with hot-reload capability
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	watchers []chan *Config
	watcher  *fsnotify.Watcher
	file     string
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	config, err := Load(configFile)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		config: config,
		file:   configFile,
	}

	if configFile != "" {
		if err := manager.setupFileWatcher(); err != nil {
			logging.Logger().Error(err, "Failed to watch config file; hot reload disabled", "file", configFile)
		}
	}

	return manager, nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Watch returns a channel that receives configuration updates
func (m *Manager) Watch() <-chan *Config {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch := make(chan *Config, 1)
	m.watchers = append(m.watchers, ch)
	ch <- m.config

	return ch
}

// Update updates the configuration and notifies watchers
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	m.config = config
	watchers := make([]chan *Config, len(m.watchers))
	copy(watchers, m.watchers)
	m.mu.Unlock()

	for _, watcher := range watchers {
		select {
		case watcher <- config:
		default:
			// watcher has not consumed the previous update
		}
	}
}

// Close closes the configuration manager and cleans up resources
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, watcher := range m.watchers {
		close(watcher)
	}
	m.watchers = nil

	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}

func (m *Manager) setupFileWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	m.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					m.reloadConfig()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Logger().Error(err, "Config file watcher error")
			}
		}
	}()

	return watcher.Add(m.file)
}

func (m *Manager) reloadConfig() {
	config, err := Load(m.file)
	if err != nil {
		logging.Logger().Error(err, "Failed to reload config", "file", m.file)
		return
	}

	logging.Logger().Info("Configuration reloaded", "file", m.file)
	m.Update(config)
}

func loadFromFile(filename string, config *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, config)
}

// applyEnv overrides configuration values with the environment variables
// understood by the other cloudbridge implementations
func applyEnv(c *Config) {
	setInt(&c.Defaults.ResultLimit, "CB_DEFAULT_RESULT_LIMIT")
	setDuration(&c.Defaults.WaitTimeout, "CB_DEFAULT_WAIT_TIMEOUT")
	setDuration(&c.Defaults.WaitInterval, "CB_DEFAULT_WAIT_INTERVAL")

	aws := &c.Providers.AWS
	setString(&aws.AccessKey, "AWS_ACCESS_KEY")
	setString(&aws.SecretKey, "AWS_SECRET_KEY")
	setString(&aws.SessionToken, "AWS_SESSION_TOKEN")
	setString(&aws.Region, "AWS_DEFAULT_REGION")
	setString(&aws.Zone, "AWS_ZONE_NAME")
	setString(&aws.EC2Endpoint, "EC2_ENDPOINT_URL")
	setString(&aws.S3Endpoint, "S3_ENDPOINT_URL")

	az := &c.Providers.Azure
	setString(&az.SubscriptionID, "AZURE_SUBSCRIPTION_ID")
	setString(&az.ClientID, "AZURE_CLIENT_ID")
	setString(&az.Secret, "AZURE_SECRET")
	setString(&az.Tenant, "AZURE_TENANT")
	setString(&az.ResourceGroup, "AZURE_RESOURCE_GROUP")
	setString(&az.Region, "AZURE_REGION_NAME")
	setString(&az.Zone, "AZURE_ZONE_NAME")
	setString(&az.StorageAccount, "AZURE_STORAGE_ACCOUNT")
	setString(&az.VMDefaultUserName, "AZURE_VM_DEFAULT_USER_NAME")
	setString(&az.PublicKeyTableName, "AZURE_PUBLIC_KEY_STORAGE_TABLE_NAME")

	gcp := &c.Providers.GCP
	setString(&gcp.Project, "GCP_PROJECT_NAME")
	setString(&gcp.CredentialsFile, "GCP_SERVICE_CREDS_FILE")
	setString(&gcp.Region, "GCP_DEFAULT_REGION")
	setString(&gcp.Zone, "GCP_DEFAULT_ZONE")

	ostack := &c.Providers.OpenStack
	setString(&ostack.AuthURL, "OS_AUTH_URL")
	setString(&ostack.Username, "OS_USERNAME")
	setString(&ostack.Password, "OS_PASSWORD")
	setString(&ostack.ProjectName, "OS_PROJECT_NAME")
	setString(&ostack.ProjectDomainName, "OS_PROJECT_DOMAIN_NAME")
	setString(&ostack.UserDomainName, "OS_USER_DOMAIN_NAME")
	setString(&ostack.Region, "OS_REGION_NAME")
	setString(&ostack.Zone, "OS_ZONE_NAME")
}

// Singleton configuration manager
var (
	globalManager *Manager
	globalOnce    sync.Once
)

// InitGlobal initializes the global configuration manager
func InitGlobal(configFile string) error {
	var err error
	globalOnce.Do(func() {
		globalManager, err = NewManager(configFile)
	})
	return err
}

// Global returns the global configuration
func Global() *Config {
	if globalManager == nil {
		config, _ := Load("")
		return config
	}
	return globalManager.Get()
}

func setString(dst *string, key string) {
	if value := getEnv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := getEnv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

// setDuration accepts Go durations ("90s") and bare seconds ("90")
func setDuration(dst *time.Duration, key string) {
	value := getEnv(key)
	if value == "" {
		return
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		*dst = parsed
		return
	}
	if seconds, err := strconv.ParseFloat(value, 64); err == nil {
		*dst = time.Duration(seconds * float64(time.Second))
	}
}

var getEnv = os.Getenv
