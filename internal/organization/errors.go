package organization

import "errors"

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrNameRequired       = errors.New("organization name is required")
	ErrNotAMember         = errors.New("not a member of that organization")
	ErrAlreadyMember      = errors.New("user is already a member of this organization")
	ErrProvisioningFailed = errors.New("organization provisioning failed")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrOrgNotFound        = errors.New("organization not found")
)
