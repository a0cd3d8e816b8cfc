package auth

import (
	"errors"
	"fmt"
	"slices"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/models"
)

// RestrictTo reports whether an authenticated identity holds one of roles.
// A nil identity is treated as unauthenticated.
func RestrictTo(id *Identity, roles ...models.Role) error {
	if id == nil || id.User == nil {
		return newError(KindInvalidToken, MsgInvalidToken, errors.New("no identity"))
	}
	if !slices.Contains(roles, id.User.Role) {
		return newError(KindForbidden, MsgForbidden, fmt.Errorf("role %q not in %v", id.User.Role, roles))
	}
	return nil
}
