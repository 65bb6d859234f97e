// Package universal assembles a factory with every built-in provider
// registered. Importing only pkg/cloudjack and the provider package you
// need keeps unused SDKs out of the binary; this package is the
// batteries-included alternative.
package universal

import (
	"github.com/cloudjack/cloudjack/pkg/cloudjack"
	"github.com/cloudjack/cloudjack/pkg/providers/aws"
	"github.com/cloudjack/cloudjack/pkg/providers/gcp"
)

// NewFactory returns a factory serving both AWS and GCP for every service
// contract.
func NewFactory(opts ...cloudjack.FactoryOption) *cloudjack.Factory {
	return cloudjack.NewFactory(NewRegistry(), opts...)
}

// NewRegistry returns a registry with all built-in adapters registered,
// for callers that want to add their own providers before building a
// factory.
func NewRegistry() *cloudjack.Registry {
	reg := cloudjack.NewRegistry()
	aws.Register(reg)
	gcp.Register(reg)
	return reg
}
