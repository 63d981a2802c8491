package command

// Built-in command names.
const (
	InsertHeading    = "insert-heading"
	TurnInto         = "turn-into"
	ToggleList       = "toggle-list"
	SetCalloutType   = "set-callout-type"
	DuplicateNode    = "duplicate-node"
	DeleteNode       = "delete-node"
	InsertBlockAfter = "insert-block-after"
	SetPageStyle     = "set-page-style"
	ResetPageStyle   = "reset-page-style"
	ClearFormatting  = "clear-formatting"
	CopyNode         = "copy-node"
	PasteNode        = "paste-node"
	MoveNodeUp       = "move-node-up"
	MoveNodeDown     = "move-node-down"
	ToggleMark       = "toggle-mark"
	InsertCallout    = "insert-callout"
	InsertCard       = "insert-card"
	InsertColumns    = "insert-columns"
	InsertGallery    = "insert-gallery"
	InsertImage      = "insert-image"
	InsertVideo      = "insert-video"
	InsertCustomPage = "insert-custom-page"
	InsertDivider    = "insert-divider"
)

// Builtins returns the built-in commands by name.
func Builtins() map[string]Command {
	return map[string]Command{
		InsertHeading:    inserting(buildHeading),
		TurnInto:         turnInto,
		ToggleList:       toggleList,
		SetCalloutType:   setCalloutType,
		DuplicateNode:    duplicateNode,
		DeleteNode:       deleteNode,
		InsertBlockAfter: insertBlockAfter,
		SetPageStyle:     setPageStyle,
		ResetPageStyle:   resetPageStyle,
		ClearFormatting:  clearFormatting,
		CopyNode:         copyNode,
		PasteNode:        pasteNode,
		MoveNodeUp:       moveNode(-1),
		MoveNodeDown:     moveNode(1),
		ToggleMark:       toggleMark,
		InsertCallout:    inserting(buildCallout),
		InsertCard:       inserting(buildCard),
		InsertColumns:    inserting(buildColumns),
		InsertGallery:    inserting(buildGallery),
		InsertImage:      inserting(buildImage),
		InsertVideo:      inserting(buildVideo),
		InsertCustomPage: inserting(buildCustomPage),
		InsertDivider:    inserting(buildDivider),
	}
}

// RegisterBuiltins registers the built-in commands on d, skipping names
// that are already taken.
func RegisterBuiltins(d *Dispatcher) {
	for name, cmd := range Builtins() {
		if !d.Has(name) {
			_ = d.Register(name, cmd)
		}
	}
}
