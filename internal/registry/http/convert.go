package http

import (
	"github.com/hivecert/hivecert/internal/registry/domain"
	"github.com/hivecert/hivecert/pkg/registrysdk"
)

// toAdmin never exposes the password hash. IsConfirmed mirrors is_active,
// the one flag that says the tenant is usable.
func toAdmin(a domain.Admin) registrysdk.Admin {
	return registrysdk.Admin{
		ID:              a.ID,
		FirstName:       a.FirstName,
		LastName:        a.LastName,
		Email:           a.Email,
		PhoneNumber:     a.PhoneNumber,
		Role:            a.Role.String(),
		SchemaName:      a.SchemaName,
		DisplayName:     a.DisplayName,
		Description:     a.Description,
		MaxUsers:        a.MaxUsers,
		MaxStorage:      a.MaxStorageMB,
		IsActive:        a.IsActive,
		IsConfirmed:     a.IsActive,
		ConfirmedAt:     a.ConfirmedAt,
		PhoneVerifiedAt: a.PhoneVerifiedAt,
		CreatedAt:       a.CreatedAt,
	}
}

func toAdminUser(u *domain.TenantUser, schema string) *registrysdk.AdminUser {
	if u == nil {
		return nil
	}
	return &registrysdk.AdminUser{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		PhoneNumber:   u.PhoneNumber,
		Role:          u.Role,
		IsAdmin:       u.IsAdmin,
		IsConfirmed:   u.IsConfirmed,
		AdminGlobalID: u.AdminGlobalID,
		Schema:        schema,
	}
}

func toRegistration(req registrysdk.RegisterRequest) domain.Registration {
	r := domain.Registration{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Email:         req.Email,
		PhoneNumber:   req.PhoneNumber,
		Password:      req.Password,
		Role:          domain.Role(req.Role),
		PhoneVerified: req.PhoneVerified,
		AdminCode:     req.AdminCode,
	}
	if ns := req.Namespace; ns != nil {
		r.Namespace = domain.NamespaceConfig{
			Name:         ns.Name,
			DisplayName:  ns.DisplayName,
			Description:  ns.Description,
			MaxUsers:     ns.MaxUsers,
			MaxStorageMB: ns.MaxStorage,
		}
	}
	return r
}
