package styles

// DefaultThemeName is used when the configured theme is unknown.
const DefaultThemeName = "ember"

// NewEmberTheme is the default warm theme on a slate background.
func NewEmberTheme() *Theme {
	return &Theme{
		Name:   "ember",
		IsDark: true,

		Primary:   ParseHex("#C0392B"), // Fire red
		Secondary: ParseHex("#F4D03F"), // Bright yellow
		Accent:    ParseHex("#F39C12"), // Golden orange

		BgBase:      ParseHex("#2C3E50"),
		BgSubtle:    ParseHex("#3D566E"),
		BgHighlight: ParseHex("#5D6D7E"),

		FgBase:     ParseHex("#f5f6fa"),
		FgMuted:    ParseHex("#a0a0a0"),
		FgSubtle:   ParseHex("#6F6F70"),
		FgInverted: ParseHex("#1e1e1e"),

		Border:      ParseHex("#5D6D7E"),
		BorderFocus: ParseHex("#F39C12"),

		Success: ParseHex("#27AE60"),
		Error:   ParseHex("#E74C3C"),
		Warning: ParseHex("#F39C12"),
		Info:    ParseHex("#3498DB"),
	}
}

// NewDuskTheme is a cool blue theme.
func NewDuskTheme() *Theme {
	return &Theme{
		Name:   "dusk",
		IsDark: true,

		Primary:   ParseHex("#60a5fa"), // Sky blue
		Secondary: ParseHex("#a78bfa"), // Violet
		Accent:    ParseHex("#34d399"), // Emerald

		BgBase:      ParseHex("#0f172a"),
		BgSubtle:    ParseHex("#334155"),
		BgHighlight: ParseHex("#64748b"),

		FgBase:     ParseHex("#f8fafc"),
		FgMuted:    ParseHex("#cbd5e1"),
		FgSubtle:   ParseHex("#94a3b8"),
		FgInverted: ParseHex("#0f172a"),

		Border:      ParseHex("#334155"),
		BorderFocus: ParseHex("#60a5fa"),

		Success: ParseHex("#34d399"),
		Error:   ParseHex("#f87171"),
		Warning: ParseHex("#fbbf24"),
		Info:    ParseHex("#60a5fa"),
	}
}
