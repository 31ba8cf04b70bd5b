// Package destination maps named destinations from configuration to ready
// SCIM clients. Resolution failures are distinct from transport failures:
// an unknown name or an entry without a host reference never reaches the
// network.
package destination

import (
	"errors"

	"github.com/hashicorp/go-hclog"

	"github.com/scimbridge/scimbridge/pkg/clients/scim"
	"github.com/scimbridge/scimbridge/pkg/config"
	"github.com/scimbridge/scimbridge/pkg/utils/errs"
)

var (
	ErrUnknownDestination = errors.New("unknown destination")
	ErrMissingHost        = errors.New("destination has no host reference")
	ErrClientCreation     = errors.New("failed to create SCIM client for destination")
)

type Registry struct {
	clients map[string]*scim.Client
}

// NewRegistry builds one SCIM client per configured destination. Host and
// credential references are resolved here, once; a bad entry fails registry
// construction, there is no partially usable registry.
func NewRegistry(destinations map[string]config.Destination, logger hclog.Logger) (*Registry, error) {
	clients := make(map[string]*scim.Client, len(destinations))

	for name, dest := range destinations {
		if dest.Host.Source == "" {
			return nil, errs.Wrapf(ErrMissingHost, name)
		}

		client, err := scim.NewClientFromAPI(scim.APIParams{
			Host:   dest.Host,
			Auth:   dest.Auth,
			Logger: logger.Named("scim").With("destination", name),
		})
		if err != nil {
			return nil, errs.Wrap(errs.Wrapf(ErrClientCreation, name), err)
		}

		clients[name] = client
	}

	return &Registry{clients: clients}, nil
}

// Resolve returns the client bound to name.
func (r *Registry) Resolve(name string) (*scim.Client, error) {
	client, ok := r.clients[name]
	if !ok {
		return nil, errs.Wrapf(ErrUnknownDestination, name)
	}

	return client, nil
}
