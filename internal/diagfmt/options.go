package diagfmt

// PathMode specifies how module paths are displayed.
type PathMode uint8

const (
	// PathModeModule prints the module id as loaded ("lib/math").
	PathModeModule PathMode = iota
	// PathModeFile appends the .wgsl extension ("lib/math.wgsl").
	PathModeFile
	PathModeBasename
)

func (m PathMode) String() string {
	switch m {
	case PathModeFile:
		return "file"
	case PathModeBasename:
		return "basename"
	default:
		return "module"
	}
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Context   uint8 // строк до основной строки
	PathMode  PathMode
	ShowNotes bool
	Max       int // 0 - без ограничения
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         PathMode
	Max              int // обрезка вывода, не Bag
	IncludeNotes     bool
}
