package internal

import (
	"errors"
	"time"
)

// Kind tags the role of a message on the wire.
type Kind string

const (
	KindLogin  Kind = "login"
	KindChat   Kind = "chat"
	KindFile   Kind = "file"
	KindTyping Kind = "typing"
)

// this struct describes the json envelope that both the client and server exchange during a chat session.
type Message struct {
	Kind     Kind   `json:"kind"`
	Sender   string `json:"sender"`
	Content  string `json:"content,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileData []byte `json:"fileData,omitempty"`
	Ts       int64  `json:"ts,omitempty"`
}

var errInvalidMessage = errors.New("invalid message")

// Validate checks the shape rules that every decoded frame must satisfy:
// a known kind, and file name/data present together and only on file messages.
func (m Message) Validate() error {
	switch m.Kind {
	case KindLogin, KindChat, KindTyping:
		if m.FileName != "" || len(m.FileData) > 0 {
			return errInvalidMessage
		}
	case KindFile:
		if m.FileName == "" || len(m.FileData) == 0 {
			return errInvalidMessage
		}
	default:
		return errInvalidMessage
	}
	return nil
}

func NewLogin(username string) Message {
	return Message{Kind: KindLogin, Sender: username, Content: "login request", Ts: time.Now().Unix()}
}

func NewChat(sender, body string) Message {
	return Message{Kind: KindChat, Sender: sender, Content: body, Ts: time.Now().Unix()}
}

func NewFile(sender, name string, data []byte) Message {
	return Message{Kind: KindFile, Sender: sender, FileName: name, FileData: data, Ts: time.Now().Unix()}
}

func NewTyping(sender string) Message {
	return Message{Kind: KindTyping, Sender: sender}
}
