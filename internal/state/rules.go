package state

import "github.com/roach88/erpsync/internal/model"

// Class is the reconciliation rule applied when an operation succeeds.
type Class int

const (
	// ClassStatusOnly changes nothing but the operation status.
	ClassStatusOnly Class = iota
	// ClassReplaceAll replaces items wholesale with the returned sequence.
	ClassReplaceAll
	// ClassReplacePage replaces items with the returned page and overwrites
	// all pagination fields.
	ClassReplacePage
	// ClassSelect stores the returned entity as the selected entity.
	ClassSelect
	// ClassAppend appends the returned entity to the tail of items.
	ClassAppend
	// ClassUpdate replaces the matching entity when Rules.SpliceOnUpdate is
	// set; otherwise items stay stale until the next list or page fetch.
	ClassUpdate
	// ClassRemove removes the entity whose key equals the returned key.
	ClassRemove
	// ClassMarkReceived rewrites the matching entity with Rules.Receive.
	ClassMarkReceived
)

func (c Class) String() string {
	switch c {
	case ClassStatusOnly:
		return "status-only"
	case ClassReplaceAll:
		return "replace-all"
	case ClassReplacePage:
		return "replace-page"
	case ClassSelect:
		return "select"
	case ClassAppend:
		return "append"
	case ClassUpdate:
		return "update"
	case ClassRemove:
		return "remove"
	case ClassMarkReceived:
		return "mark-received"
	default:
		return "unknown"
	}
}

// Rules configures one resource store.
type Rules[T model.Entity] struct {
	// Resource is the resource whose events this store accepts.
	Resource model.Resource

	// Operations maps each supported operation to its reconciliation class.
	// Events for operations not listed here are ignored.
	Operations map[model.OperationName]Class

	// SpliceOnUpdate makes ClassUpdate replace the matching entity in items.
	SpliceOnUpdate bool

	// InitialPagination is the pagination of a fresh store.
	InitialPagination model.Pagination

	// Receive returns the received form of an entity (ClassMarkReceived).
	Receive func(T) T
}

// CRUD returns the operation table shared by every domain resource.
func CRUD() map[model.OperationName]Class {
	return map[model.OperationName]Class{
		model.OpListAll:  ClassReplaceAll,
		model.OpListPage: ClassReplacePage,
		model.OpGet:      ClassSelect,
		model.OpCreate:   ClassAppend,
		model.OpUpdate:   ClassUpdate,
		model.OpDelete:   ClassRemove,
	}
}

// DefaultPagination is the pagination of a resource before its first page
// fetch.
func DefaultPagination() model.Pagination {
	return model.Pagination{CurrentPage: 1, TotalPages: 1}
}
