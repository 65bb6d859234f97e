package cloudjack

import "fmt"

// CloudProvider identifies a cloud service provider.
type CloudProvider string

const (
	ProviderAWS CloudProvider = "aws"
	ProviderGCP CloudProvider = "gcp"
)

// ParseProvider converts a provider name into a CloudProvider. Matching is
// exact; unknown or differently-cased names are rejected so a typo fails at
// the boundary instead of surfacing later as a missing registration.
func ParseProvider(name string) (CloudProvider, error) {
	switch CloudProvider(name) {
	case ProviderAWS, ProviderGCP:
		return CloudProvider(name), nil
	}
	return "", &UnsupportedProviderError{Provider: name}
}

// Service identifies a cloud capability that providers implement.
type Service string

const (
	// ServiceSecretManager is secret storage and retrieval.
	ServiceSecretManager Service = "secret_manager"
	// ServiceStorage is object (blob) storage.
	ServiceStorage Service = "storage"
	// ServiceQueue is message queueing.
	ServiceQueue Service = "queue"
	// ServiceCompute is virtual machine lifecycle management.
	ServiceCompute Service = "compute"
	// ServiceDNS is hosted zone and record management.
	ServiceDNS Service = "dns"
	// ServiceIAM is role and policy management.
	ServiceIAM Service = "iam"
	// ServiceLogging is log group and log entry management.
	ServiceLogging Service = "logging"
)

// Services returns every capability this module defines, in stable order.
func Services() []Service {
	return []Service{
		ServiceSecretManager,
		ServiceStorage,
		ServiceQueue,
		ServiceCompute,
		ServiceDNS,
		ServiceIAM,
		ServiceLogging,
	}
}

// ParseService converts a service name into a Service, rejecting names
// outside the closed capability set.
func ParseService(name string) (Service, error) {
	for _, s := range Services() {
		if Service(name) == s {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown service %q", name)
}
