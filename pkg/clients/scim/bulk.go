package scim

import "fmt"

// MembershipOp is a SCIM PatchOp operation on a group's members attribute.
type MembershipOp string

const (
	MembershipAdd    MembershipOp = "add"
	MembershipRemove MembershipOp = "remove"
)

const membersPath = "members"

// MemberRef references one user inside a members PATCH value.
type MemberRef struct {
	Value string `json:"value"`
}

// PatchOperation is a single operation inside a PatchOp document.
type PatchOperation struct {
	Op    MembershipOp `json:"op"`
	Path  string       `json:"path"`
	Value []MemberRef  `json:"value"`
}

// PatchOp is the urn:ietf:params:scim:api:messages:2.0:PatchOp document
// carried as the data of one bulk sub-operation.
type PatchOp struct {
	Schemas    []string         `json:"schemas"`
	Operations []PatchOperation `json:"operations"`
}

// BulkOperation is one PATCH sub-operation inside a BulkRequest.
type BulkOperation struct {
	Method string  `json:"method"`
	BulkID string  `json:"bulkId"`
	Path   string  `json:"path"`
	Data   PatchOp `json:"data"`
}

// BulkRequest is the urn:ietf:params:scim:api:messages:2.0:BulkRequest
// document posted to /Bulk. FailOnErrors is fixed at 1: the tenant stops
// processing after the first failing sub-operation.
type BulkRequest struct {
	Schemas      []string        `json:"schemas"`
	FailOnErrors int             `json:"failOnErrors"`
	Operations   []BulkOperation `json:"operations"`
}

// BulkOperationStatus is the tenant's per-operation outcome in a BulkResponse.
type BulkOperationStatus struct {
	Method   string `json:"method"`
	BulkID   string `json:"bulkId"`
	Location string `json:"location,omitempty"`
	Status   string `json:"status,omitempty"`
}

type BulkResponse struct {
	Schemas    []string              `json:"schemas"`
	Operations []BulkOperationStatus `json:"operations"`
}

// GroupAction pairs a resolved group ID with the membership operation to
// apply to it.
type GroupAction struct {
	GroupID string
	Op      MembershipOp
}

func groupPath(groupID string) string {
	return "/Groups/" + groupID
}

func membersPatch(op MembershipOp, userIDs []string) PatchOp {
	refs := make([]MemberRef, len(userIDs))
	for i, id := range userIDs {
		refs[i] = MemberRef{Value: id}
	}

	return PatchOp{
		Schemas: []string{PatchOpSchema},
		Operations: []PatchOperation{{
			Op:    op,
			Path:  membersPath,
			Value: refs,
		}},
	}
}

// BuildGroupMembershipBulkRequest builds a BulkRequest with a single PATCH
// sub-operation applying op for all userIDs on one group.
//
// The bulkId equals the group ID. A document containing this operation twice
// for the same group would carry colliding bulkIds; callers batching several
// groups use BuildMultiGroupBulkRequest instead.
func BuildGroupMembershipBulkRequest(groupID string, userIDs []string, op MembershipOp) BulkRequest {
	return BulkRequest{
		Schemas:      []string{BulkRequestSchema},
		FailOnErrors: 1,
		Operations: []BulkOperation{{
			Method: "PATCH",
			BulkID: groupID,
			Path:   groupPath(groupID),
			Data:   membersPatch(op, userIDs),
		}},
	}
}

// BuildMultiGroupBulkRequest builds a BulkRequest with one PATCH
// sub-operation per group action, each adding or removing the single user.
// BulkIds are made unique per operation ("group-<id>-<seq>") so the same
// group may appear more than once in the sequence.
func BuildMultiGroupBulkRequest(userID string, actions []GroupAction) BulkRequest {
	operations := make([]BulkOperation, len(actions))
	for i, action := range actions {
		operations[i] = BulkOperation{
			Method: "PATCH",
			BulkID: fmt.Sprintf("group-%s-%d", action.GroupID, i),
			Path:   groupPath(action.GroupID),
			Data:   membersPatch(action.Op, []string{userID}),
		}
	}

	return BulkRequest{
		Schemas:      []string{BulkRequestSchema},
		FailOnErrors: 1,
		Operations:   operations,
	}
}
