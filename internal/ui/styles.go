package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorBorder    = lipgloss.Color("#374151") // Dark gray
	ColorText      = lipgloss.Color("#F9FAFB") // Light text
	ColorTextMuted = lipgloss.Color("#B0B8C4")
	ColorOwn       = lipgloss.Color("#A78BFA") // Light purple for own messages
	ColorOther     = lipgloss.Color("#22D3EE")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorError     = lipgloss.Color("#EF4444")
	ColorSuccess   = lipgloss.Color("#10B981")
)

// Header styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Background(ColorPrimary).
			Padding(0, 1)

	HeaderNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Background(ColorPrimary)
)

// Footer styles
var (
	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	FooterKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSecondary)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)
)

// Sidebar styles
var (
	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	SidebarTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorPrimary)

	SidebarItemStyle = lipgloss.NewStyle().
				Foreground(ColorText)

	SidebarSelfStyle = lipgloss.NewStyle().
				Foreground(ColorOwn).
				Bold(true)
)

// Message styles
var (
	TimestampStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	OwnUserStyle = lipgloss.NewStyle().
			Foreground(ColorOwn).
			Bold(true)

	OtherUserStyle = lipgloss.NewStyle().
			Foreground(ColorOther)

	MessageTextStyle = lipgloss.NewStyle().
				Foreground(ColorText)

	EmptyStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			Italic(true)
)

// Login styles
var (
	LoginBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(1, 2)

	LoginTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)
)

// statusStyle returns the header badge style for a connection status.
func statusStyle(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(color).
		Background(ColorPrimary)
}
