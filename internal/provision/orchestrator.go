// Package provision composes the SCIM client into the operations the service
// exposes: group membership changes by name and best-effort batch user
// creation.
package provision

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/openkcm/common-sdk/pkg/pointers"

	"github.com/scimbridge/scimbridge/internal/destination"
	"github.com/scimbridge/scimbridge/pkg/clients/scim"
	"github.com/scimbridge/scimbridge/pkg/utils/errs"
)

var ErrUserNotFound = errors.New("no user found for email")

const (
	StatusSuccess = "success"
	StatusWarning = "warning"
)

const listUsersCount = 100

// Result is the outcome of a membership change for one user.
//
// Groups always echoes the originally requested group names, including any
// skipped because they did not resolve; consumers wanting the effective
// subset must compare against the warning status. Kept for compatibility
// with existing consumers of the service.
type Result struct {
	Status  string   `json:"status"`
	Email   string   `json:"email"`
	Groups  []string `json:"assignedGroups"`
	Message string   `json:"message,omitempty"`
}

type Orchestrator struct {
	destinations    *destination.Registry
	destinationName string
	logger          *slog.Logger
}

func NewOrchestrator(destinations *destination.Registry, destinationName string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		destinations:    destinations,
		destinationName: destinationName,
		logger:          logger,
	}
}

// AssignGroupsToUser adds the user with the given email to each named group
// in one bulk round trip. Groups that do not resolve are skipped with a
// warning; a user that does not resolve aborts the call.
func (o *Orchestrator) AssignGroupsToUser(ctx context.Context, email string, groupNames []string) (*Result, error) {
	return o.applyMembership(ctx, email, groupNames, scim.MembershipAdd)
}

// RevokeGroupsFromUser is the mirror image of AssignGroupsToUser using
// remove operations.
func (o *Orchestrator) RevokeGroupsFromUser(ctx context.Context, email string, groupNames []string) (*Result, error) {
	return o.applyMembership(ctx, email, groupNames, scim.MembershipRemove)
}

func (o *Orchestrator) applyMembership(
	ctx context.Context,
	email string,
	groupNames []string,
	op scim.MembershipOp,
) (*Result, error) {
	client, err := o.destinations.Resolve(o.destinationName)
	if err != nil {
		return nil, err
	}

	userID, err := client.LookupUserIDByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		return nil, errs.Wrapf(ErrUserNotFound, email)
	}

	actions := make([]scim.GroupAction, 0, len(groupNames))

	for _, name := range groupNames {
		groupID, err := client.LookupGroupIDByName(ctx, name)
		if err != nil {
			return nil, err
		}

		if groupID == "" {
			o.logger.Warn("skipping unresolved group", "group", name, "email", email)
			continue
		}

		actions = append(actions, scim.GroupAction{GroupID: groupID, Op: op})
	}

	if len(actions) == 0 {
		return &Result{
			Status:  StatusWarning,
			Email:   email,
			Groups:  groupNames,
			Message: "no groups resolved; nothing was submitted",
		}, nil
	}

	_, err = client.SubmitBulk(ctx, scim.BuildMultiGroupBulkRequest(userID, actions))
	if err != nil {
		return nil, err
	}

	o.logger.Info("group membership updated",
		"email", email, "op", string(op), "requested", len(groupNames), "applied", len(actions))

	return &Result{
		Status: StatusSuccess,
		Email:  email,
		Groups: groupNames,
	}, nil
}

// AssignUsersToGroup adds the already-resolved user IDs to one group in a
// single bulk request.
func (o *Orchestrator) AssignUsersToGroup(ctx context.Context, groupID string, userIDs []string) (*scim.BulkResponse, error) {
	client, err := o.destinations.Resolve(o.destinationName)
	if err != nil {
		return nil, err
	}

	return client.SubmitBulk(ctx, scim.BuildGroupMembershipBulkRequest(groupID, userIDs, scim.MembershipAdd))
}

// ResolveUserIDs resolves emails to user IDs concurrently. The returned
// slice preserves the input ordering with unresolved emails dropped; the
// first transport failure fails the whole call.
func (o *Orchestrator) ResolveUserIDs(ctx context.Context, emails []string) ([]string, error) {
	client, err := o.destinations.Resolve(o.destinationName)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(emails))
	lookupErrs := make([]error, len(emails))

	var wg sync.WaitGroup

	for i, email := range emails {
		wg.Add(1)

		go func() {
			defer wg.Done()
			ids[i], lookupErrs[i] = client.LookupUserIDByEmail(ctx, email)
		}()
	}

	wg.Wait()

	for _, err := range lookupErrs {
		if err != nil {
			return nil, err
		}
	}

	resolved := make([]string, 0, len(ids))

	for i, id := range ids {
		if id == "" {
			o.logger.Warn("skipping unresolved email", "email", emails[i])
			continue
		}

		resolved = append(resolved, id)
	}

	return resolved, nil
}

// ListUsers fetches up to 100 users from the tenant.
func (o *Orchestrator) ListUsers(ctx context.Context) (*scim.UserList, error) {
	client, err := o.destinations.Resolve(o.destinationName)
	if err != nil {
		return nil, err
	}

	return client.ListUsers(ctx, http.MethodGet, scim.NullFilterExpression{}, nil, pointers.To(listUsersCount), nil)
}
