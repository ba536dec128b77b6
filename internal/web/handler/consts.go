package handler

const (
	// RootPath is the root path for the route groups.
	RootPath = "/"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"

	// DefaultPageLimit is the page size applied when the limit query
	// parameter is absent.
	DefaultPageLimit = 50

	// MaxPageLimit caps the page size a client may request.
	MaxPageLimit = 200
)
