package destination_test

import (
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimbridge/scimbridge/internal/destination"
	"github.com/scimbridge/scimbridge/pkg/config"
)

func embeddedRef(value string) commoncfg.SourceRef {
	return commoncfg.SourceRef{
		Source: commoncfg.EmbeddedSourceValue,
		Value:  value,
	}
}

func fileRef(path string) commoncfg.SourceRef {
	return commoncfg.SourceRef{
		Source: commoncfg.FileSourceValue,
		File: commoncfg.CredentialFile{
			Path:   path,
			Format: commoncfg.BinaryFileFormat,
		},
	}
}

func basicDestination(host string) config.Destination {
	return config.Destination{
		Host: embeddedRef(host),
		Auth: commoncfg.SecretRef{
			Type: commoncfg.BasicSecretType,
			Basic: commoncfg.BasicAuth{
				Username: embeddedRef("client"),
				Password: embeddedRef("unreal"),
			},
		},
	}
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name          string
		destinations  map[string]config.Destination
		expectError   bool
		expectedError error
	}{
		{
			name: "Valid basic-auth destination",
			destinations: map[string]config.Destination{
				"ias_api": basicDestination("https://tenant.example.com/scim"),
			},
		},
		{
			name: "Missing host reference",
			destinations: map[string]config.Destination{
				"broken": {
					Auth: commoncfg.SecretRef{Type: commoncfg.BasicSecretType},
				},
			},
			expectError:   true,
			expectedError: destination.ErrMissingHost,
		},
		{
			name: "Missing auth type",
			destinations: map[string]config.Destination{
				"broken": {Host: embeddedRef("https://tenant.example.com/scim")},
			},
			expectError:   true,
			expectedError: destination.ErrClientCreation,
		},
		{
			name: "Unreadable certificate files",
			destinations: map[string]config.Destination{
				"broken": {
					Host: embeddedRef("https://tenant.example.com/scim"),
					Auth: commoncfg.SecretRef{
						Type: commoncfg.MTLSSecretType,
						MTLS: commoncfg.MTLS{
							Cert:    fileRef("testdata/missing.cer"),
							CertKey: fileRef("testdata/missing.key"),
						},
					},
				},
			},
			expectError:   true,
			expectedError: destination.ErrClientCreation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := destination.NewRegistry(tt.destinations, hclog.NewNullLogger())

			if tt.expectError {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, registry)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, registry)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	registry, err := destination.NewRegistry(map[string]config.Destination{
		"ias_api": basicDestination("https://tenant.example.com/scim"),
	}, hclog.NewNullLogger())
	require.NoError(t, err)

	t.Run("Known destination", func(t *testing.T) {
		client, err := registry.Resolve("ias_api")
		assert.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("Unknown destination", func(t *testing.T) {
		client, err := registry.Resolve("nope")
		assert.ErrorIs(t, err, destination.ErrUnknownDestination)
		assert.Nil(t, client)
	})
}
