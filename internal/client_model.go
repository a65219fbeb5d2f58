package internal

import (
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// tui model struct for all the components and modes
type TUIModel struct {
	textInput  textinput.Model
	controller *Controller
	events     chan tea.Msg

	serverAddr  string
	username    string
	downloadDir string

	entries         []chatEntry
	isConnected     bool
	connectionError error

	typingFrom string
	typingSeq  int

	pendingOffer *fileOffer

	browsePath  string
	browseItems []FileItem
	browseIndex int

	mode appMode
}

// chatEntry is one rendered line of the conversation.
type chatEntry struct {
	sender string
	body   string
	ts     time.Time
	system bool
}

// fileOffer holds an inbound file until the user accepts or declines. The
// receive loop blocks on reply, mirroring the original modal prompt.
type fileOffer struct {
	sender string
	name   string
	data   []byte
	reply  chan<- bool
}

type appMode int

const (
	modeNamePrompt appMode = iota
	modeChat
	modeFilePicker
	modeFileOffer
)

// bubbletea messages representing asynchronous session events
type (
	chatEventMsg struct {
		sender string
		body   string
		ts     time.Time
	}
	typingEventMsg   struct{ sender string }
	typingExpiredMsg struct{ seq int }
	disconnectedMsg  struct{ reason string }
	loginResultMsg   struct {
		ok     bool
		errMsg string
	}
	fileOfferMsg    fileOffer
	fileSentMsg     struct{ name string }
	fileFailedMsg   struct{ err error }
	browseLoadedMsg struct {
		path  string
		items []FileItem
		err   error
	}
)

func NewTUIModel(serverAddr, username, downloadDir string) *TUIModel {
	input := textinput.New()
	input.Placeholder = "Enter display name…"
	input.CharLimit = 0
	input.Prompt = "name> "
	input.Focus()
	if username == "" {
		username = defaultUsername()
	}
	input.SetValue(username)

	if downloadDir == "" {
		downloadDir = DefaultDownloadDir()
	}

	model := &TUIModel{
		textInput:   input,
		events:      make(chan tea.Msg),
		serverAddr:  serverAddr,
		username:    username,
		downloadDir: downloadDir,
		entries:     make([]chatEntry, 0, 64),
		mode:        modeNamePrompt,
	}
	model.controller = NewController(&teaEvents{sink: model.events})
	return model
}

// init user
func defaultUsername() string {
	if user := os.Getenv("CHATRELAY_USER"); user != "" {
		return user
	}
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "anon"
}

func (model *TUIModel) Init() tea.Cmd {
	return model.waitForEvent()
}

// waitForEvent pumps one session event into the bubbletea loop; each handler
// re-arms it.
func (model *TUIModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return <-model.events
	}
}

// teaEvents adapts the controller's Events callbacks onto the bubbletea
// message channel.
type teaEvents struct {
	sink chan tea.Msg
}

func (e *teaEvents) ChatMessage(sender, text string, ts time.Time) {
	e.sink <- chatEventMsg{sender: sender, body: text, ts: ts}
}

func (e *teaEvents) FileOffer(sender, fileName string, data []byte) bool {
	reply := make(chan bool, 1)
	e.sink <- fileOfferMsg{sender: sender, name: fileName, data: data, reply: reply}
	return <-reply
}

func (e *teaEvents) TypingIndicator(sender string) {
	e.sink <- typingEventMsg{sender: sender}
}

func (e *teaEvents) Disconnected(reason string) {
	e.sink <- disconnectedMsg{reason: reason}
}

func (e *teaEvents) LoginResult(ok bool, errMsg string) {
	e.sink <- loginResultMsg{ok: ok, errMsg: errMsg}
}

// RunClient launches the terminal client against the given relay address.
func RunClient(serverAddr, username, downloadDir string) error {
	model := NewTUIModel(serverAddr, username, downloadDir)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	model.controller.Close()
	return err
}
