package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tasys/internal/theme"
)

// Layout manages the multi-panel terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	BannerHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight, BannerHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		BannerHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header, banner line and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.BannerHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderBadges renders the two unread notification badges.
func RenderBadges(overdue, created int) string {
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		theme.BadgeStyle(overdue).Render(fmt.Sprintf("o overdue %d", overdue)),
		" ",
		theme.BadgeStyle(created).Render(fmt.Sprintf("w new %d", created)),
	)
}

// RenderHeader renders the top header bar with a title, the notification
// badges and sync status.
func (l Layout) RenderHeader(title, badges, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(badges) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		badges,
		statusRendered,
	)
}

// RenderBanner renders the inline result line of the last mutation.
func (l Layout) RenderBanner(text string, isError bool) string {
	if text == "" {
		return ""
	}
	style := theme.SuccessBannerStyle
	if isError {
		style = theme.ErrorBannerStyle
	}
	return style.MaxWidth(l.Width).Render(text)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, banner, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	banner string,
	content string,
	statusBar string,
) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		banner,
		content,
		statusBar,
	)
}
