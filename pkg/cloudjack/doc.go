// Package cloudjack provides a capability-oriented abstraction over cloud
// providers. Instead of programming against a provider SDK directly, callers
// ask a Factory for a capability (secret storage, object storage, queues,
// compute, DNS, IAM, logging) on a named provider and receive a client that
// satisfies the capability's contract interface.
//
// The package is organized around four pieces:
//
//   - Contract interfaces (SecretManager, ObjectStorage, Queue, Compute,
//     DNS, IAM, Logging) that every provider adapter implements.
//   - A Registry mapping (provider, service) pairs to adapter constructors.
//   - Config resolution that merges explicit values with provider-standard
//     environment variables into a typed, validated ProviderConfig.
//   - A Factory that resolves config, consults the registry, and caches
//     constructed clients by their resolved identity.
//
// Provider adapters live in separate packages (pkg/providers/aws,
// pkg/providers/gcp) and are wired up by the caller, typically through
// pkg/universal which registers everything this module ships with.
//
// Errors returned by adapters are normalized into *Error values carrying the
// provider, service, operation and a portable Kind, so callers can branch on
// IsNotFound or IsAlreadyExists without knowing which provider produced the
// failure.
package cloudjack
