package ui

// Color accessors return the escape code of the current theme for a role.
// They return empty strings when colors are disabled.

func ColorGreen() string     { return GetCurrentTheme().Success }
func ColorRed() string       { return GetCurrentTheme().Error }
func ColorYellow() string    { return GetCurrentTheme().Warning }
func ColorCyan() string      { return GetCurrentTheme().Primary }
func ColorMagenta() string   { return GetCurrentTheme().Info }
func ColorGrey() string      { return GetCurrentTheme().Secondary }
func ColorBold() string      { return GetCurrentTheme().Bold }
func ColorUnderline() string { return GetCurrentTheme().Underline }
func ColorReset() string     { return GetCurrentTheme().Reset }
