package listview

import (
	"fmt"

	"github.com/abgdnv/catalogadmin/internal/catalog"
)

// ModalMode is the state of the edit dialog.
type ModalMode int

const (
	ModalClosed ModalMode = iota
	ModalCreate
	ModalEdit
)

// String implements fmt.Stringer.
func (m ModalMode) String() string {
	switch m {
	case ModalCreate:
		return "create"
	case ModalEdit:
		return "edit"
	default:
		return "closed"
	}
}

// Modal is the edit dialog: closed, open for a new record, or open for RecordID.
// Form holds the values currently shown in the dialog.
type Modal struct {
	Mode     ModalMode
	RecordID string
	Form     catalog.Form
}

// Open reports whether the dialog is shown.
func (m Modal) Open() bool {
	return m.Mode != ModalClosed
}

// Title is the dialog heading.
func (m Modal) Title() string {
	switch m.Mode {
	case ModalCreate:
		return "New product"
	case ModalEdit:
		return fmt.Sprintf("Edit #%s", m.RecordID)
	default:
		return ""
	}
}

func (m *Modal) openCreate() {
	*m = Modal{Mode: ModalCreate, Form: catalog.NewForm()}
}

func (m *Modal) openEdit(id string, form catalog.Form) {
	*m = Modal{Mode: ModalEdit, RecordID: id, Form: form}
}

// keep leaves the dialog open with the values the user submitted, so they can be corrected.
func (m *Modal) keep(form catalog.Form) {
	m.Form = form
}

func (m *Modal) close() {
	*m = Modal{}
}
