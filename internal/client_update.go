package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type fileSavedMsg struct {
	path string
	err  error
}

func (model *TUIModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typedMessage := message.(type) {
	case tea.KeyMsg:
		// Ctrl+C bails out from any mode.
		if typedMessage.Type == tea.KeyCtrlC {
			model.controller.Close()
			return model, tea.Quit
		}
		switch model.mode {
		case modeNamePrompt:
			return model.updateNamePrompt(typedMessage)
		case modeChat:
			return model.updateChat(typedMessage)
		case modeFilePicker:
			return model.updateFilePicker(typedMessage)
		case modeFileOffer:
			return model.updateFileOffer(typedMessage)
		}

	case loginResultMsg:
		if typedMessage.ok {
			model.isConnected = true
			model.connectionError = nil
			model.appendSystem("Connected to " + model.serverAddr)
		} else {
			model.isConnected = false
			model.connectionError = fmt.Errorf("%s", typedMessage.errMsg)
			model.mode = modeNamePrompt
			model.resetInput("name> ", "Enter display name…", model.username)
			model.appendSystem("Login failed: " + typedMessage.errMsg)
		}
		return model, model.waitForEvent()

	case chatEventMsg:
		model.entries = append(model.entries, chatEntry{
			sender: typedMessage.sender,
			body:   typedMessage.body,
			ts:     typedMessage.ts,
		})
		return model, model.waitForEvent()

	case typingEventMsg:
		model.typingFrom = typedMessage.sender
		model.typingSeq++
		seq := model.typingSeq
		clear := tea.Tick(TypingIndicatorTTL, func(time.Time) tea.Msg {
			return typingExpiredMsg{seq: seq}
		})
		return model, tea.Batch(model.waitForEvent(), clear)

	case typingExpiredMsg:
		// only clear if no newer typing arrived in the meantime
		if typedMessage.seq == model.typingSeq {
			model.typingFrom = ""
		}
		return model, nil

	case fileOfferMsg:
		offer := fileOffer(typedMessage)
		model.pendingOffer = &offer
		model.mode = modeFileOffer
		return model, model.waitForEvent()

	case fileSavedMsg:
		if typedMessage.err != nil {
			model.appendSystem("Saving file failed: " + typedMessage.err.Error())
		} else {
			model.appendSystem("File saved to " + typedMessage.path)
		}
		return model, nil

	case fileSentMsg:
		model.appendSystem("You sent a file: " + typedMessage.name)
		return model, nil

	case fileFailedMsg:
		model.appendSystem("File send failed: " + typedMessage.err.Error())
		return model, nil

	case browseLoadedMsg:
		if typedMessage.err != nil {
			model.appendSystem("Cannot open " + typedMessage.path + ": " + typedMessage.err.Error())
			model.mode = modeChat
			return model, nil
		}
		model.browsePath = typedMessage.path
		model.browseItems = typedMessage.items
		model.browseIndex = 0
		return model, nil

	case disconnectedMsg:
		model.isConnected = false
		model.typingFrom = ""
		model.mode = modeNamePrompt
		model.resetInput("name> ", "Enter display name…", model.username)
		model.appendSystem("Disconnected from server: " + typedMessage.reason)
		return model, model.waitForEvent()
	}
	return model, nil
}

func (model *TUIModel) updateNamePrompt(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		model.controller.Close()
		return model, tea.Quit
	case tea.KeyEnter:
		trimmed := strings.TrimSpace(model.textInput.Value())
		if trimmed == "" {
			model.appendSystem("Display name cannot be empty.")
			return model, nil
		}
		model.username = trimmed
		model.mode = modeChat
		model.resetInput("> ", "Type a message…", "")
		model.appendSystem("Connecting to " + model.serverAddr + "…")
		return model, model.connectCmd()
	default:
		var cmd tea.Cmd
		model.textInput, cmd = model.textInput.Update(key)
		return model, cmd
	}
}

func (model *TUIModel) updateChat(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Type == tea.KeyEnter {
		trimmed := strings.TrimSpace(model.textInput.Value())
		if strings.HasPrefix(trimmed, "/") {
			if cmd, handled := model.handleLocalCommand(trimmed); handled {
				model.textInput.SetValue("")
				return model, cmd
			}
			// unknown slash commands go to the server; the bot may answer
		}
		if trimmed != "" && model.isConnected {
			model.textInput.SetValue("")
			return model, model.sendChatCmd(trimmed)
		}
		return model, nil
	}

	before := model.textInput.Value()
	var cmd tea.Cmd
	model.textInput, cmd = model.textInput.Update(key)
	if model.isConnected && model.textInput.Value() != before {
		return model, tea.Batch(cmd, model.notifyTypingCmd())
	}
	return model, cmd
}

// handleLocalCommand intercepts the commands the client resolves itself.
// Everything else (e.g. /time, /roll) travels to the server bot unchanged.
func (model *TUIModel) handleLocalCommand(input string) (tea.Cmd, bool) {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit":
		model.controller.Close()
		return tea.Quit, true
	case "/sendfile":
		if !model.isConnected {
			model.appendSystem("Not connected.")
			return nil, true
		}
		if len(fields) >= 2 {
			return model.sendFileCmd(strings.Join(fields[1:], " ")), true
		}
		model.mode = modeFilePicker
		return model.browseCmd(defaultBrowsePath()), true
	}
	return nil, false
}

func (model *TUIModel) updateFilePicker(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc", "q":
		model.mode = modeChat
		return model, nil
	case "up", "k":
		if model.browseIndex > 0 {
			model.browseIndex--
		}
		return model, nil
	case "down", "j":
		if model.browseIndex < len(model.browseItems)-1 {
			model.browseIndex++
		}
		return model, nil
	case "enter":
		if len(model.browseItems) == 0 {
			return model, nil
		}
		item := model.browseItems[model.browseIndex]
		if item.IsDir {
			return model, model.browseCmd(item.Path)
		}
		model.mode = modeChat
		return model, model.sendFileCmd(item.Path)
	}
	return model, nil
}

func (model *TUIModel) updateFileOffer(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	offer := model.pendingOffer
	if offer == nil {
		model.mode = modeChat
		return model, nil
	}
	switch key.String() {
	case "y", "Y", "enter":
		offer.reply <- true
		model.pendingOffer = nil
		model.mode = modeChat
		model.appendSystem(fmt.Sprintf("%s sent a file: %s (%s)", offer.sender, offer.name, formatFileSize(int64(len(offer.data)))))
		return model, model.saveFileCmd(offer.name, offer.data)
	case "n", "N", "esc":
		offer.reply <- false
		model.pendingOffer = nil
		model.mode = modeChat
		model.appendSystem("Declined file from " + offer.sender)
		return model, nil
	}
	return model, nil
}

func (model *TUIModel) connectCmd() tea.Cmd {
	addr, username := model.serverAddr, model.username
	return func() tea.Msg {
		// success and failure both arrive through the events channel
		_ = model.controller.Connect(addr, username)
		return nil
	}
}

func (model *TUIModel) sendChatCmd(text string) tea.Cmd {
	return func() tea.Msg {
		_ = model.controller.SendChat(text)
		return nil
	}
}

func (model *TUIModel) notifyTypingCmd() tea.Cmd {
	return func() tea.Msg {
		_ = model.controller.NotifyTyping()
		return nil
	}
}

func (model *TUIModel) sendFileCmd(path string) tea.Cmd {
	return func() tea.Msg {
		data, err := os.ReadFile(path)
		if err != nil {
			return fileFailedMsg{err: err}
		}
		if err := model.controller.SendFile(path, data); err != nil {
			return fileFailedMsg{err: err}
		}
		return fileSentMsg{name: filepath.Base(path)}
	}
}

func (model *TUIModel) browseCmd(path string) tea.Cmd {
	return func() tea.Msg {
		items, err := browseDirectory(path)
		return browseLoadedMsg{path: path, items: items, err: err}
	}
}

func (model *TUIModel) saveFileCmd(name string, data []byte) tea.Cmd {
	dir := model.downloadDir
	return func() tea.Msg {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fileSavedMsg{err: err}
		}
		path := filepath.Join(dir, filepath.Base(name))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fileSavedMsg{err: err}
		}
		return fileSavedMsg{path: path}
	}
}

func (model *TUIModel) appendSystem(body string) {
	model.entries = append(model.entries, chatEntry{body: body, ts: time.Now(), system: true})
}

func (model *TUIModel) resetInput(prompt, placeholder, value string) {
	model.textInput.Prompt = prompt
	model.textInput.Placeholder = placeholder
	model.textInput.SetValue(value)
	model.textInput.Focus()
}
