package core

// OwnershipGuard permits an operation only when the acting principal owns the
// target resource. There is no role override: an ADMIN principal is checked
// exactly like a USER.
type OwnershipGuard struct{}

// Authorize fails with AccessDenied unless p.Email equals ownerEmail exactly.
func (OwnershipGuard) Authorize(p Principal, ownerEmail string) error {
	if p.Email == "" || normalizeEmail(p.Email) != normalizeEmail(ownerEmail) {
		return ErrAccessDenied
	}
	return nil
}
