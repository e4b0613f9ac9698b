// Package access holds the role/resource/action table that decides which
// operations a caller may invoke. The table is evaluated by the services on
// every call; clients may use Permissions to hide controls, nothing more.
package access

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleViewer    Role = "viewer"
	RoleAnonymous Role = "anonymous"
)

type Resource string

const (
	Products  Resource = "products"
	Customers Resource = "customers"
	Purchases Resource = "purchases"
)

type Action string

const (
	View   Action = "view"
	Add    Action = "add"
	Edit   Action = "edit"
	Delete Action = "delete"
)

var (
	Roles     = []Role{RoleAdmin, RoleManager, RoleViewer, RoleAnonymous}
	Resources = []Resource{Products, Customers, Purchases}
	Actions   = []Action{View, Add, Edit, Delete}
)

type actionSet map[Action]bool

var table = map[Role]map[Resource]actionSet{
	RoleAdmin: {
		Products:  {View: true, Add: true, Edit: true, Delete: true},
		Customers: {View: true, Add: true, Edit: true, Delete: true},
		Purchases: {View: true, Add: true, Edit: true, Delete: true},
	},
	RoleManager: {
		Products:  {View: true, Add: true, Edit: true},
		Customers: {View: true, Add: true},
		Purchases: {View: true, Add: true, Edit: true},
	},
	RoleViewer: {
		Products:  {View: true},
		Customers: {View: true},
		Purchases: {View: true},
	},
}

// CanPerform reports whether role may apply action to resource. Unknown
// roles, resources and actions are denied.
func CanPerform(role Role, resource Resource, action Action) bool {
	return table[role][resource][action]
}

// Permissions lists the allowed actions per resource for role, in the
// canonical order of Resources and Actions.
func Permissions(role Role) map[Resource][]Action {
	out := make(map[Resource][]Action, len(Resources))
	for _, res := range Resources {
		allowed := []Action{}
		for _, act := range Actions {
			if CanPerform(role, res, act) {
				allowed = append(allowed, act)
			}
		}
		out[res] = allowed
	}
	return out
}

// ParseRole maps a stored role name to a Role, falling back to anonymous.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleViewer:
		return Role(s)
	default:
		return RoleAnonymous
	}
}
