package auth

import "fmt"

// EditPolicy decides who may modify or delete a content record. One policy is
// chosen at startup and applied to every content type.
type EditPolicy int

const (
	// AnyAdminOrSuperadmin lets every staff account edit any record.
	AnyAdminOrSuperadmin EditPolicy = iota
	// OwnerOrSuperadmin limits Admins to records they created.
	OwnerOrSuperadmin
)

func ParseEditPolicy(s string) (EditPolicy, error) {
	switch s {
	case "", "any_admin":
		return AnyAdminOrSuperadmin, nil
	case "owner_or_superadmin":
		return OwnerOrSuperadmin, nil
	default:
		return 0, fmt.Errorf("unknown content edit policy %q", s)
	}
}

func (p EditPolicy) String() string {
	switch p {
	case AnyAdminOrSuperadmin:
		return "any_admin"
	case OwnerOrSuperadmin:
		return "owner_or_superadmin"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// CanModify reports whether sess may change a record owned by ownerID. A nil
// owner means the record predates ownership tracking and only a Superadmin may
// touch it under OwnerOrSuperadmin.
func (p EditPolicy) CanModify(sess *Session, ownerID *int64) error {
	if sess == nil || !sess.Role.Valid() {
		return ErrUnauthenticated
	}
	switch sess.Role {
	case RoleSuperadmin:
		return nil
	case RoleAdmin:
		switch p {
		case AnyAdminOrSuperadmin:
			return nil
		case OwnerOrSuperadmin:
			if ownerID != nil && *ownerID == sess.UserID {
				return nil
			}
			return ErrForbidden
		}
	}
	return ErrForbidden
}
