package core

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// UserService implements the user resource operations. Every owner-scoped
// operation receives the acting Principal explicitly.
type UserService struct {
	users  UserRepository
	hasher PasswordHasher
	guard  OwnershipGuard
}

func NewUserService(users UserRepository, hasher PasswordHasher) *UserService {
	return &UserService{users: users, hasher: hasher}
}

// Register stores a new enabled USER; the password is hashed before hand-off.
func (s *UserService) Register(ctx context.Context, req RegisterUserRequest) (UserDto, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return UserDto{}, fmt.Errorf("hash password: %w", err)
	}
	saved, err := s.users.Create(ctx, &UserRecord{
		Username:     req.Username,
		PasswordHash: hash,
		Email:        normalizeEmail(req.Email),
		Enabled:      true,
		Role:         RoleUser,
	})
	if err != nil {
		return UserDto{}, fmt.Errorf("create user: %w", err)
	}
	log.Printf("user registered id=%d", saved.ID)
	return toUserDto(saved), nil
}

// FindByID returns the user when p owns it.
func (s *UserService) FindByID(ctx context.Context, p Principal, id int64) (UserDto, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return UserDto{}, err
	}
	if err := s.guard.Authorize(p, u.Email); err != nil {
		return UserDto{}, err
	}
	return toUserDto(u), nil
}

// List returns a page of users and the total count.
func (s *UserService) List(ctx context.Context, page, perPage int) ([]UserDto, int, error) {
	records, total, err := s.users.List(ctx, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	out := make([]UserDto, 0, len(records))
	for i := range records {
		out = append(out, toUserDto(&records[i]))
	}
	return out, total, nil
}

// Update applies a self-update. Ownership is checked against the body email
// before anything is read or written; role and enabled are kept from the
// stored record.
func (s *UserService) Update(ctx context.Context, p Principal, pathID int64, req UpdateUserRequest) error {
	if pathID != req.ID {
		return InvalidIDError("Path variable id is not equal to User id")
	}
	if err := s.guard.Authorize(p, req.Email); err != nil {
		return err
	}
	current, err := s.find(ctx, req.ID)
	if err != nil {
		return err
	}
	// The stored record must belong to the caller as well.
	if err := s.guard.Authorize(p, current.Email); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	updated := *current
	updated.Username = req.Username
	updated.PasswordHash = hash
	updated.Email = normalizeEmail(req.Email)
	updated.FirstName = req.FirstName
	updated.LastName = req.LastName
	updated.Country = req.Country
	updated.City = req.City
	updated.DeliveryInfo = req.DeliveryInfo
	if err := s.users.Update(ctx, &updated); err != nil {
		return err
	}
	log.Printf("user updated id=%d", updated.ID)
	return nil
}

// Delete removes the user with id only if its stored email is p's email. The
// id has passed the existence check, so zero affected rows means AccessDenied.
func (s *UserService) Delete(ctx context.Context, p Principal, id int64) error {
	exists, err := s.users.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("check user %d: %w", id, err)
	}
	if !exists {
		return NotFoundError("User with id %d not found", id)
	}
	deleted, err := s.users.DeleteByIDAndEmail(ctx, id, p.Email)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if deleted == 0 {
		return ErrAccessDenied
	}
	log.Printf("user deleted id=%d", id)
	return nil
}

func (s *UserService) find(ctx context.Context, id int64) (*UserRecord, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, NotFoundError("User with id %d not found", id)
		}
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, nil
}
