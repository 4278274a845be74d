package model

// Category identifies one of the two notification badges.
type Category string

const (
	// CategoryOverdue counts overdue tasks the user has not seen.
	CategoryOverdue Category = "overdue"

	// CategoryNew counts tasks created in the last 24 hours the user has not seen.
	CategoryNew Category = "new"
)

// Categories lists every notification category.
var Categories = []Category{CategoryOverdue, CategoryNew}

// StorageKey returns the persisted key holding the category's watermark.
func (c Category) StorageKey() string {
	switch c {
	case CategoryOverdue:
		return "lastOverdueViewed"
	case CategoryNew:
		return "lastNewTasksViewed"
	default:
		return ""
	}
}

// Title returns the alert panel heading for the category.
func (c Category) Title() string {
	switch c {
	case CategoryOverdue:
		return "Overdue Tasks"
	case CategoryNew:
		return "New Tasks (last 24h)"
	default:
		return string(c)
	}
}

// Watermarks holds the last-viewed instant per category, in Unix
// milliseconds. Zero means never viewed.
type Watermarks struct {
	Overdue int64 `json:"overdue"`
	New     int64 `json:"new"`
}

// Get returns the watermark for c.
func (w Watermarks) Get(c Category) int64 {
	switch c {
	case CategoryOverdue:
		return w.Overdue
	case CategoryNew:
		return w.New
	default:
		return 0
	}
}

// With returns a copy of w with the watermark for c replaced.
func (w Watermarks) With(c Category, v int64) Watermarks {
	switch c {
	case CategoryOverdue:
		w.Overdue = v
	case CategoryNew:
		w.New = v
	}
	return w
}
