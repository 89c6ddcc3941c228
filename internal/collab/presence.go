package collab

// Identity describes the account behind a connection. It is supplied by the
// authentication layer at join time and trusted as-is.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// CursorPosition is a pointer location in percentage-of-canvas coordinates,
// scoped to a single slide.
type CursorPosition struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	SlideID string  `json:"slideId"`
}

// UserPresence is the per-connection presence record inside a room. ID is the
// account id, not the connection id: one account may hold several entries
// (one per open tab).
type UserPresence struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Image         string          `json:"image,omitempty"`
	Color         string          `json:"color"`
	Cursor        *CursorPosition `json:"cursor,omitempty"`
	ActiveSlideID string          `json:"activeSlideId,omitempty"`
}

// cursorPalette is the fixed set of colors handed out to joiners. Each room
// cycles through it round-robin, wrapping once all twelve are taken.
var cursorPalette = [...]string{
	"#ef4444", // red
	"#f97316", // orange
	"#f59e0b", // amber
	"#84cc16", // lime
	"#22c55e", // green
	"#14b8a6", // teal
	"#06b6d4", // cyan
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#a855f7", // purple
	"#ec4899", // pink
	"#f43f5e", // rose
}

// PaletteSize is exported for UI layers that want to pre-render swatches.
const PaletteSize = len(cursorPalette)
