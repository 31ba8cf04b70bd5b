package scim

import (
	"context"
	"errors"
	"net/http"

	"github.com/openkcm/common-sdk/pkg/pointers"

	"github.com/scimbridge/scimbridge/pkg/utils/errs"
)

const (
	// Canonical lookup attributes. Group lookup goes through displayName;
	// the tenant's custom group-extension name attribute is not used.
	emailAttribute     = "emails.value"
	groupNameAttribute = "displayName"

	// Lookups ask for at most this many matches and project only the id
	// attribute. The tenant may still include extension data.
	lookupCount = 100
)

var ErrEmptyLookupValue = errors.New("lookup value must not be empty")

var lookupAttributes = []string{"id"}

// LookupUserIDByEmail resolves an email address to a SCIM user identifier.
// The first match's SAP extension userUuid is preferred; the base id is the
// fallback. Zero matches return "" with a nil error, distinct from a failed
// call.
func (c *Client) LookupUserIDByEmail(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", errs.Wrap(ErrListUsers, ErrEmptyLookupValue)
	}

	filter := FilterComparison{
		Attribute: emailAttribute,
		Operator:  FilterOperatorEqual,
		Value:     email,
	}

	users, err := c.ListUsers(ctx, http.MethodGet, filter, nil, pointers.To(lookupCount), lookupAttributes)
	if err != nil {
		return "", err
	}

	if len(users.Resources) == 0 {
		c.logger.Debug("no SCIM user matched email", "email", email)
		return "", nil
	}

	user := users.Resources[0]
	if user.SAPExtension != nil && user.SAPExtension.UserUUID != "" {
		return user.SAPExtension.UserUUID, nil
	}

	return user.ID, nil
}

// LookupGroupIDByName resolves a group display name to its SCIM group ID.
// Zero matches return "" with a nil error.
func (c *Client) LookupGroupIDByName(ctx context.Context, groupName string) (string, error) {
	if groupName == "" {
		return "", errs.Wrap(ErrListGroups, ErrEmptyLookupValue)
	}

	filter := FilterComparison{
		Attribute: groupNameAttribute,
		Operator:  FilterOperatorEqual,
		Value:     groupName,
	}

	groups, err := c.ListGroups(ctx, http.MethodGet, filter, nil, pointers.To(lookupCount), lookupAttributes)
	if err != nil {
		return "", err
	}

	if len(groups.Resources) == 0 {
		c.logger.Debug("no SCIM group matched name", "group", groupName)
		return "", nil
	}

	return groups.Resources[0].ID, nil
}
