package rbac

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sparkleops/sparkle-ops/internal/shared"
)

// Service resolves the permissions granted to a role.
type Service struct {
	grants map[string][]string
}

// NewService uses the built-in role table.
func NewService() *Service {
	return &Service{grants: rolePermissions}
}

// Roles lists the known role names.
func (s *Service) Roles() []string {
	out := make([]string, 0, len(s.grants))
	for role := range s.grants {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// EffectivePermissions returns the sorted permissions of role.
func (s *Service) EffectivePermissions(_ context.Context, role string) ([]string, error) {
	perms, ok := s.grants[strings.ToLower(strings.TrimSpace(role))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", shared.ErrForbidden, role)
	}
	out := append([]string(nil), perms...)
	sort.Strings(out)
	return out, nil
}
