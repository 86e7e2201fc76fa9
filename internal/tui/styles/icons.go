package styles

const (
	CheckIcon   string = "✓"
	ErrorIcon   string = "✗"
	WarningIcon string = "⚠"
	InfoIcon    string = "ℹ"
	IdleIcon    string = "○"
	PendingIcon string = "…"
	PointerIcon string = "›"
)
