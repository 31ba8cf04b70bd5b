package scim

// Schema URNs used on the wire. These are contractual; the tenant rejects
// documents whose schemas array does not carry the exact values.
const (
	UserSchema           = "urn:ietf:params:scim:schemas:core:2.0:User"
	EnterpriseUserSchema = "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User"
	SAPUserSchema        = "urn:ietf:params:scim:schemas:extension:sap:2.0:User"

	SearchRequestSchema = "urn:ietf:params:scim:api:messages:2.0:SearchRequest"
	BulkRequestSchema   = "urn:ietf:params:scim:api:messages:2.0:BulkRequest"
	BulkResponseSchema  = "urn:ietf:params:scim:api:messages:2.0:BulkResponse"
	PatchOpSchema       = "urn:ietf:params:scim:api:messages:2.0:PatchOp"
)

//nolint:tagliatelle
type BaseResource struct {
	ID         string   `json:"id"`
	ExternalID string   `json:"externalId,omitempty"`
	Meta       struct{} `json:"meta,omitempty"`
	Schemas    []string `json:"schemas,omitempty"`
}

type MultiValuedAttribute struct {
	Primary bool   `json:"primary,omitempty"`
	Display string `json:"display,omitempty"`
	Type    string `json:"type,omitempty"`
	Value   string `json:"value"`
}

// SAPUserExtension carries the tenant-specific user extension. Only the
// fields the resolver needs are mapped; the tenant sends more.
type SAPUserExtension struct {
	UserUUID string `json:"userUuid,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Status   string `json:"status,omitempty"`
}

type User struct {
	BaseResource

	UserName    string                 `json:"userName"`
	Name        struct{}               `json:"name"`
	DisplayName string                 `json:"displayName,omitempty"`
	Active      bool                   `json:"active"`
	Emails      []MultiValuedAttribute `json:"emails"`
	Groups      []MultiValuedAttribute `json:"groups"`
	UserType    string                 `json:"userType,omitempty"`

	SAPExtension *SAPUserExtension `json:"urn:ietf:params:scim:schemas:extension:sap:2.0:User,omitempty"`
}

type Group struct {
	BaseResource

	DisplayName string                 `json:"displayName,omitempty"`
	Members     []MultiValuedAttribute `json:"members,omitempty"`
}

//nolint:tagliatelle
type UserList struct {
	Resources    []User `json:"Resources"`
	TotalResults int    `json:"totalResults,omitempty"`
	ItemsPerPage int    `json:"itemsPerPage,omitempty"`
	StartIndex   int    `json:"startIndex,omitempty"`
}

//nolint:tagliatelle
type GroupList struct {
	Resources    []Group `json:"Resources"`
	TotalResults int     `json:"totalResults,omitempty"`
	ItemsPerPage int     `json:"itemsPerPage,omitempty"`
	StartIndex   int     `json:"startIndex,omitempty"`
}

type SearchRequest struct {
	Schemas    []string `json:"schemas"`
	Filter     *string  `json:"filter,omitempty"`
	Attributes []string `json:"attributes,omitempty"`
	Count      *int     `json:"count,omitempty"`
	Cursor     *string  `json:"cursor,omitempty"`
}
