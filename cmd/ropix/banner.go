package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ropix/pkg/config"
	"ropix/pkg/utils"
)

// Style definitions
var (
	primaryColor = lipgloss.Color("#FF79C6") // Pink
	accentColor  = lipgloss.Color("#50FA7B") // Green
	mutedColor   = lipgloss.Color("#6272A4") // Comment
	fgColor      = lipgloss.Color("#F8F8F2") // Foreground

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(fgColor).
			Bold(true)

	accentValueStyle = lipgloss.NewStyle().
				Foreground(accentColor).
				Bold(true)
)

func printBanner(cfg *config.Config) {
	var rows []string
	rows = append(rows, titleStyle.Render("ropix")+" "+valueStyle.Render("v"+version))
	rows = append(rows, "")
	rows = append(rows, labelStyle.Render("Listening")+accentValueStyle.Render(cfg.ListenAddress))
	rows = append(rows, labelStyle.Render("Frontend")+valueStyle.Render(cfg.FrontendDir))
	rows = append(rows, labelStyle.Render("Upload cap")+valueStyle.Render(utils.FormatDataSize(cfg.MaxUploadBytes())))
	rows = append(rows, labelStyle.Render("Device cap")+valueStyle.Render(fmt.Sprintf("%d per room", cfg.MaxDevicesPerRoom)))

	mdns := "disabled"
	if cfg.Discovery.Enabled {
		mdns = cfg.Discovery.Instance + " (" + cfg.Discovery.Service + ")"
	}
	rows = append(rows, labelStyle.Render("mDNS")+valueStyle.Render(mdns))

	fmt.Println(panelStyle.Render(strings.Join(rows, "\n")))
}
