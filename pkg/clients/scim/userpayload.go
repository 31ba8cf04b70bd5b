package scim

import (
	"errors"
	"sort"
)

var ErrMissingIdentifier = errors.New("user attributes must contain userName or email")

// UserAttributes is the loosely-typed attribute bag accepted by
// BuildUserPayload. It is the shape produced by decoding caller JSON (or an
// extractor's output) without a schema: scalars, nested maps, and arrays of
// strings or maps.
type UserAttributes map[string]any

// UserResource is a SCIM User document ready for POST /Users. A map rather
// than a struct because extension URNs become top-level keys.
type UserResource map[string]any

// Fields copied verbatim from the bag when present.
var userScalarFields = []string{
	"displayName",
	"nickName",
	"profileUrl",
	"title",
	"userType",
	"preferredLanguage",
	"locale",
	"timezone",
	"externalId",
	"password",
}

// Recognized sub-fields of the name object. Absent fields are omitted, never
// emitted as null.
var userNameFields = []string{
	"formatted",
	"familyName",
	"givenName",
	"middleName",
	"honorificPrefix",
	"honorificSuffix",
}

// BuildUserPayload maps an attribute bag into a SCIM User resource.
//
// At least one of userName or email is required. The schemas array always
// starts with the core User URN and gains one entry, at most once, per
// populated extension bucket: enterprise, sapExtension, then each key of
// customSchemas. Extension sub-objects are attached under their URN as
// top-level keys.
func BuildUserPayload(attrs UserAttributes) (UserResource, error) {
	userName, _ := attrs["userName"].(string)
	email, _ := attrs["email"].(string)

	if userName == "" && email == "" {
		return nil, ErrMissingIdentifier
	}

	if userName == "" {
		userName = email
	}

	schemas := []string{UserSchema}
	payload := UserResource{
		"userName": userName,
	}

	for _, field := range userScalarFields {
		if value, ok := attrs[field]; ok {
			payload[field] = value
		}
	}

	if active, ok := attrs["active"].(bool); ok {
		payload["active"] = active
	} else {
		payload["active"] = true
	}

	if name := buildNameObject(attrs["name"]); len(name) > 0 {
		payload["name"] = name
	}

	if emails := coerceMultiValued(attrs["emails"], func(s string) map[string]any {
		return map[string]any{"value": s, "primary": true}
	}); emails != nil {
		payload["emails"] = emails
	} else if email != "" {
		payload["emails"] = []any{map[string]any{"value": email, "primary": true}}
	}

	if phones := coerceMultiValued(attrs["phoneNumbers"], func(s string) map[string]any {
		return map[string]any{"value": s, "type": "work"}
	}); phones != nil {
		payload["phoneNumbers"] = phones
	}

	if addresses, ok := attrs["addresses"]; ok {
		payload["addresses"] = addresses
	}

	if enterprise, ok := attrs["enterprise"]; ok {
		schemas = appendSchema(schemas, EnterpriseUserSchema)
		payload[EnterpriseUserSchema] = enterprise
	}

	if sapExtension, ok := attrs["sapExtension"]; ok {
		schemas = appendSchema(schemas, SAPUserSchema)
		payload[SAPUserSchema] = sapExtension
	}

	if customSchemas, ok := attrs["customSchemas"].(map[string]any); ok {
		// Bag maps carry no ordering, so custom URNs are attached in sorted
		// order to keep the document deterministic.
		urns := make([]string, 0, len(customSchemas))
		for urn := range customSchemas {
			urns = append(urns, urn)
		}

		sort.Strings(urns)

		for _, urn := range urns {
			schemas = appendSchema(schemas, urn)
			payload[urn] = customSchemas[urn]
		}
	}

	payload["schemas"] = schemas

	return payload, nil
}

func buildNameObject(raw any) map[string]any {
	bag, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	name := map[string]any{}

	for _, field := range userNameFields {
		if value, ok := bag[field]; ok {
			name[field] = value
		}
	}

	return name
}

// coerceMultiValued normalizes a multi-valued attribute array: bare strings
// become objects via coerce, object entries pass through unchanged. Returns
// nil when the input is not an array.
func coerceMultiValued(raw any, coerce func(string) map[string]any) []any {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}

	result := make([]any, len(entries))

	for i, entry := range entries {
		if s, ok := entry.(string); ok {
			result[i] = coerce(s)
		} else {
			result[i] = entry
		}
	}

	return result
}

func appendSchema(schemas []string, urn string) []string {
	for _, existing := range schemas {
		if existing == urn {
			return schemas
		}
	}

	return append(schemas, urn)
}
