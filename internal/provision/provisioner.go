package provision

import (
	"context"
	"log/slog"

	"github.com/scimbridge/scimbridge/internal/destination"
	"github.com/scimbridge/scimbridge/pkg/clients/scim"
)

// CreatedUser records one successful creation with its batch position.
type CreatedUser struct {
	Index    int    `json:"index"`
	UserName string `json:"userName"`
	ID       string `json:"id"`
}

// FailedUser records one failed creation with its batch position and the
// original input, so callers can correct and resubmit just the failures.
type FailedUser struct {
	Index  int                 `json:"index"`
	Input  scim.UserAttributes `json:"input"`
	Reason string              `json:"reason"`
}

type BatchSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type BatchResult struct {
	Successful []CreatedUser `json:"successful"`
	Failed     []FailedUser  `json:"failed"`
	Summary    BatchSummary  `json:"summary"`
}

// Provisioner creates users in sequential best-effort batches. Already
// created users are never rolled back on later failures.
type Provisioner struct {
	destinations    *destination.Registry
	destinationName string
	logger          *slog.Logger
}

func NewProvisioner(destinations *destination.Registry, destinationName string, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		destinations:    destinations,
		destinationName: destinationName,
		logger:          logger,
	}
}

// CreateUsers provisions each attribute bag in order. A bag that fails
// validation or creation is recorded and the batch continues; only an
// unresolvable destination fails the whole call.
func (p *Provisioner) CreateUsers(ctx context.Context, bags []scim.UserAttributes) (*BatchResult, error) {
	client, err := p.destinations.Resolve(p.destinationName)
	if err != nil {
		return nil, err
	}

	result := BatchResult{
		Successful: []CreatedUser{},
		Failed:     []FailedUser{},
	}

	for i, bag := range bags {
		payload, err := scim.BuildUserPayload(bag)
		if err != nil {
			p.logger.Warn("rejecting user attributes", "index", i, "error", err)
			result.Failed = append(result.Failed, FailedUser{Index: i, Input: bag, Reason: err.Error()})

			continue
		}

		user, err := client.CreateUser(ctx, payload)
		if err != nil {
			p.logger.Warn("user creation failed", "index", i, "error", err)
			result.Failed = append(result.Failed, FailedUser{Index: i, Input: bag, Reason: err.Error()})

			continue
		}

		result.Successful = append(result.Successful, CreatedUser{
			Index:    i,
			UserName: user.UserName,
			ID:       user.ID,
		})
	}

	result.Summary = BatchSummary{
		Total:     len(bags),
		Succeeded: len(result.Successful),
		Failed:    len(result.Failed),
	}

	return &result, nil
}
