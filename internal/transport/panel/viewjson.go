package panel

import "github.com/abgdnv/catalogadmin/internal/listview"

type viewJSON struct {
	Items      []listview.Row `json:"items"`
	Empty      bool           `json:"empty"`
	Matches    int            `json:"matches"`
	Page       int            `json:"page"`
	TotalPages int            `json:"total_pages"`
	PageLabel  string         `json:"page_label"`
	HasPrev    bool           `json:"has_prev"`
	HasNext    bool           `json:"has_next"`
	State      stateJSON      `json:"state"`
	Brands     []string       `json:"brands"`
	Qualities  []string       `json:"qualities"`
	Modal      modalJSON      `json:"modal"`
	Loaded     bool           `json:"loaded"`
}

type stateJSON struct {
	Search    string           `json:"q"`
	Brand     string           `json:"brand"`
	Quality   string           `json:"quality"`
	Sort      listview.SortKey `json:"sort"`
	PageSize  int              `json:"page_size"`
	EditingID string           `json:"editing_id,omitempty"`
}

type modalJSON struct {
	Mode     string `json:"mode"`
	Title    string `json:"title,omitempty"`
	RecordID string `json:"record_id,omitempty"`
}

func toViewJSON(t listview.Table) viewJSON {
	return viewJSON{
		Items:      t.Rows,
		Empty:      t.Empty,
		Matches:    t.Matches,
		Page:       t.Page,
		TotalPages: t.TotalPages,
		PageLabel:  t.PageLabel,
		HasPrev:    t.HasPrev,
		HasNext:    t.HasNext,
		State: stateJSON{
			Search:    t.State.Search,
			Brand:     t.State.Brand,
			Quality:   t.State.Quality,
			Sort:      t.State.Sort,
			PageSize:  t.State.PageSize,
			EditingID: t.State.EditingID,
		},
		Brands:    t.Brands,
		Qualities: t.Qualities,
		Modal: modalJSON{
			Mode:     t.Modal.Mode.String(),
			Title:    t.Modal.Title(),
			RecordID: t.Modal.RecordID,
		},
		Loaded: t.Loaded,
	}
}
