package tui

// Option adjusts model construction.
type Option func(*Model)

// WithClipboard overrides the clipboard write function; tests capture
// copies instead of touching the system clipboard.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.writeClipboard = write
		}
	}
}

// WithGlamourStyle sets the markdown style used by the week view.
func WithGlamourStyle(style string) Option {
	return func(m *Model) {
		if style != "" {
			m.glamourStyle = style
		}
	}
}
