package rbac

import "github.com/sparkleops/sparkle-ops/internal/shared"

// Role names forwarded by the identity proxy.
const (
	RoleClient = shared.RoleClient
	RoleStaff  = shared.RoleStaff
	RoleAdmin  = shared.RoleAdmin
)

// Permissions checked by the HTTP layer.
const (
	PermQuoteView     = "quote.view"
	PermQuoteCreate   = "quote.create"
	PermQuoteEdit     = "quote.edit"
	PermQuoteSubmit   = "quote.submit"
	PermQuoteReview   = "quote.review"
	PermQuoteApprove  = "quote.approve"
	PermQuoteCancel   = "quote.cancel"
	PermQuoteRevise   = "quote.revise"
	PermInvoiceView   = "invoice.view"
	PermInvoiceManage = "invoice.manage"
	PermCatalogView   = "catalog.view"
	PermCatalogManage = "catalog.manage"
)

// Headers carrying the authenticated identity.
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"
)

var rolePermissions = map[string][]string{
	RoleClient: {
		PermQuoteView, PermQuoteCreate, PermQuoteEdit, PermQuoteSubmit, PermQuoteCancel,
		PermInvoiceView, PermCatalogView,
	},
	RoleStaff: {
		PermQuoteView, PermQuoteCreate, PermQuoteEdit, PermQuoteSubmit, PermQuoteCancel,
		PermQuoteReview, PermQuoteApprove, PermQuoteRevise,
		PermInvoiceView, PermInvoiceManage,
		PermCatalogView,
	},
}

func init() {
	all := make([]string, 0, len(rolePermissions[RoleStaff])+1)
	all = append(all, rolePermissions[RoleStaff]...)
	all = append(all, PermCatalogManage)
	rolePermissions[RoleAdmin] = all
}
