package entries

import (
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/angelmondragon/countsheet-backend/pkg/enums"
	"github.com/google/uuid"
)

// Viewer is who is looking at a report.
type Viewer struct {
	Username string
	Role     enums.Role
}

func (v Viewer) IsAdmin() bool {
	return v.Role.IsAdmin()
}

// CanEdit reports whether v may change the count of e.
func (v Viewer) CanEdit(e models.Entry) bool {
	return v.IsAdmin() || (v.Username != "" && e.AssignedTo == v.Username)
}

// View is an entry as shown to one viewer.
type View struct {
	ID          uuid.UUID         `json:"id"`
	UploadIndex int               `json:"upload_index"`
	SKU         string            `json:"sku"`
	OnHand      *int              `json:"on_hand"`
	Description string            `json:"description"`
	AssignedTo  string            `json:"assigned_to"`
	Count       *int              `json:"count"`
	EnteredBy   *string           `json:"entered_by"`
	Difference  *int              `json:"difference"`
	Status      enums.CountStatus `json:"status"`
	Color       string            `json:"color,omitempty"`
	Dirty       bool              `json:"dirty"`
	SyncError   string            `json:"sync_error,omitempty"`
	Editable    bool              `json:"editable"`
}

// LoadResult is the visible entry list of a workspace.
type LoadResult struct {
	ReportID uuid.UUID `json:"report_id"`
	Entries  []View    `json:"entries"`
	Total    int       `json:"total"`
	Pending  int       `json:"pending"`
	Complete bool      `json:"complete"`
}

// EditResult is the edited entry plus the next one the editor can move to.
type EditResult struct {
	Entry View  `json:"entry"`
	Next  *View `json:"next,omitempty"`
}
