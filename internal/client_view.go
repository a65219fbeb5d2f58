package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// pre styled colors, all from lipgloss
var (
	appTitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).Padding(0, 1)
	subtitleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).MarginTop(1)
	chatHeaderStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).MarginTop(1)
	connectedStyle     = statusStyle.Copy().Foreground(lipgloss.Color("42")).Bold(true)
	typingStyle        = statusStyle.Copy().Foreground(lipgloss.Color("178")).Italic(true)
	messageBodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("253"))
	inputBoxStyle      = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1).MarginTop(1)
	promptBoxStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60")).Padding(1, 2).MarginTop(1)
	timestampStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	usernameStyle      = lipgloss.NewStyle().Bold(true)
	systemMessageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	errorStyle         = statusStyle.Copy().Foreground(lipgloss.Color("196")).Bold(true)
	pickerItemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(1)
	pickerCursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	userColorPalette   = []lipgloss.Color{
		lipgloss.Color("45"),
		lipgloss.Color("81"),
		lipgloss.Color("141"),
		lipgloss.Color("98"),
		lipgloss.Color("63"),
		lipgloss.Color("135"),
		lipgloss.Color("32"),
	}
)

const messageWindow = 18

func (model *TUIModel) View() string {
	switch model.mode {
	case modeNamePrompt:
		return model.renderNamePromptView()
	case modeFilePicker:
		return model.renderFilePickerView()
	case modeFileOffer:
		return model.renderFileOfferView()
	default:
		return model.renderChatView()
	}
}

func (model *TUIModel) renderNamePromptView() string {
	var b strings.Builder
	b.WriteString(appTitleStyle.Render("chatrelay"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Server: " + model.serverAddr))
	b.WriteString("\n")
	b.WriteString(promptBoxStyle.Render("Pick a display name and press Enter.\n\n" + model.textInput.View()))
	if model.connectionError != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(model.connectionError.Error()))
	}
	if tail := model.recentSystemLines(3); tail != "" {
		b.WriteString("\n")
		b.WriteString(systemMessageStyle.Render(tail))
	}
	return b.String()
}

func (model *TUIModel) renderChatView() string {
	var b strings.Builder
	b.WriteString(chatHeaderStyle.Render(fmt.Sprintf("chatrelay — %s @ %s", model.username, model.serverAddr)))
	b.WriteString("\n")

	start := 0
	if len(model.entries) > messageWindow {
		start = len(model.entries) - messageWindow
	}
	for _, entry := range model.entries[start:] {
		b.WriteString(model.renderEntry(entry))
		b.WriteString("\n")
	}

	if model.typingFrom != "" {
		b.WriteString(typingStyle.Render(model.typingFrom + " is typing…"))
		b.WriteString("\n")
	}
	if model.isConnected {
		b.WriteString(connectedStyle.Render("● connected"))
	} else {
		b.WriteString(errorStyle.Render("○ disconnected"))
	}
	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(model.textInput.View()))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("/sendfile to share a file · /help for bot commands · /quit to leave"))
	return b.String()
}

func (model *TUIModel) renderEntry(entry chatEntry) string {
	stamp := timestampStyle.Render(entry.ts.Format("15:04"))
	if entry.system {
		return stamp + " " + systemMessageStyle.Render(entry.body)
	}
	name := usernameStyle.Copy().Foreground(colorForUser(entry.sender)).Render(entry.sender)
	return stamp + " " + name + ": " + messageBodyStyle.Render(entry.body)
}

func (model *TUIModel) renderFilePickerView() string {
	var b strings.Builder
	b.WriteString(appTitleStyle.Render("Send a file"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(model.browsePath))
	b.WriteString("\n\n")
	for i, item := range model.browseItems {
		label := item.Name
		if item.IsDir {
			label += "/"
		} else {
			label += "  " + formatFileSize(item.Size)
		}
		if i == model.browseIndex {
			b.WriteString(pickerCursorStyle.Render("> " + label))
		} else {
			b.WriteString(pickerItemStyle.Render("  " + label))
		}
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render("enter to send/open · esc to cancel"))
	return b.String()
}

func (model *TUIModel) renderFileOfferView() string {
	offer := model.pendingOffer
	if offer == nil {
		return model.renderChatView()
	}
	prompt := fmt.Sprintf("%s sent a file '%s' (%s).\nDownload it? [y/n]",
		offer.sender, offer.name, formatFileSize(int64(len(offer.data))))
	return appTitleStyle.Render("File received") + "\n" + promptBoxStyle.Render(prompt)
}

func (model *TUIModel) recentSystemLines(n int) string {
	var lines []string
	for i := len(model.entries) - 1; i >= 0 && len(lines) < n; i-- {
		if model.entries[i].system {
			lines = append([]string{model.entries[i].body}, lines...)
		}
	}
	return strings.Join(lines, "\n")
}

func colorForUser(name string) lipgloss.Color {
	if name == ServerName || name == BotName {
		return lipgloss.Color("214")
	}
	var sum int
	for _, r := range name {
		sum += int(r)
	}
	return userColorPalette[sum%len(userColorPalette)]
}
