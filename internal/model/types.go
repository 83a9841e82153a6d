package model

// Resource names one resource kind served by the backend.
type Resource string

const (
	ResourceMaterial   Resource = "material"
	ResourceVendor     Resource = "vendor"
	ResourceOrder      Resource = "order"
	ResourceProduct    Resource = "product"
	ResourceProduction Resource = "production"
	ResourceSale       Resource = "sale"
	ResourceAuth       Resource = "authentication"
)

// Resources lists the six domain resources in navigation order.
// The authentication resource is not included.
var Resources = []Resource{
	ResourceMaterial,
	ResourceVendor,
	ResourceOrder,
	ResourceProduct,
	ResourceProduction,
	ResourceSale,
}

// OperationName identifies one asynchronous operation of a resource.
type OperationName string

const (
	OpListAll  OperationName = "listAll"
	OpListPage OperationName = "listPage"
	OpGet      OperationName = "get"
	OpCreate   OperationName = "create"
	OpUpdate   OperationName = "update"
	OpDelete   OperationName = "delete"

	// OpReceive marks a purchase order as received (orders only).
	OpReceive OperationName = "receive"

	// Authentication resource.
	OpRegister      OperationName = "register"
	OpSignIn        OperationName = "signIn"
	OpSignOut       OperationName = "signOut"
	OpListUsersPage OperationName = "listUsersPage"
	OpDeleteUser    OperationName = "deleteUser"
)

// OperationStatus is the lifecycle state of an operation as seen by a store.
type OperationStatus int

const (
	StatusIdle OperationStatus = iota
	StatusPending
	StatusSucceeded
	StatusFailed
)

func (s OperationStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusPending:
		return "Pending"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ParseOperationStatus is the inverse of OperationStatus.String.
func ParseOperationStatus(s string) (OperationStatus, bool) {
	for _, st := range []OperationStatus{StatusIdle, StatusPending, StatusSucceeded, StatusFailed} {
		if st.String() == s {
			return st, true
		}
	}
	return StatusIdle, false
}

// Pagination is the server-reported position inside a paginated collection.
// It is authoritative only when it comes from a page response.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalItems  int `json:"totalItems"`
}

// InRange reports whether page may be requested given the last known
// page count. A zero TotalPages only allows the first page.
func (p Pagination) InRange(page int) bool {
	if page < 1 {
		return false
	}
	if p.TotalPages == 0 {
		return page == 1
	}
	return page <= p.TotalPages
}

// Page is one page of a collection together with its pagination metadata.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// Payload is a command payload already validated by the form layer.
type Payload map[string]any

// Args carries the inputs of a view intent in a resource-independent shape.
type Args struct {
	ID      string
	Page    int
	Limit   int
	Payload Payload
}
