package cmd

import (
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/pb33f/lantern/tui"
)

const pb33fASCII = `@@@@@@@   @@@@@@@   @@@@@@   @@@@@@   @@@@@@@@
@@@@@@@@  @@@@@@@@  @@@@@@@  @@@@@@@  @@@@@@@@
@@!  @@@  @@!  @@@      @@@      @@@  @@!
!@!  @!@  !@   @!@      @!@      @!@  !@!
@!@@!@!   @!@!@!@   @!@!!@   @!@!!@   @!!!:!
!!@!!!    !!!@!!!!  !!@!@!   !!@!@!   !!!!!:
!!:       !!:  !!!      !!:      !!:  !!:
:!:       :!:  !:!      :!:      :!:  :!:
 ::        :: ::::  :: ::::  :: ::::   ::
 :        :: : ::    : : :    : : :    :      `

// RenderBanner returns the styled pb33f banner for the help screen
func RenderBanner() string {
	bannerStyle := lipgloss.NewStyle().
		Foreground(tui.RGBPink).
		Bold(true)

	subtitleStyle := lipgloss.NewStyle().
		Foreground(tui.RGBBlue).
		Italic(true)

	containerStyle := lipgloss.NewStyle().
		Align(lipgloss.Center).
		MarginBottom(1)

	banner := bannerStyle.Render(pb33fASCII)
	subtitle := subtitleStyle.Render("https://pb33f.io/lantern/")

	return containerStyle.Render(banner + "\n" + subtitle)
}

// GetBannerWidth returns the width of the banner for layout calculations
func GetBannerWidth() int {
	return 48 // Width of the ASCII art
}
