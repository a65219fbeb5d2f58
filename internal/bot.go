package internal

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// BotName is the synthetic sender attached to command replies.
const BotName = "Bot"

const botHelpText = "Available commands: /time (server time), /roll (lucky number), /help (this text)"

// InterpretCommand runs the slash-command bot over one chat body. The reply
// text and true are returned for a recognized command; unrecognized slash
// commands are silently ignored so clients can carry their own local ones.
func InterpretCommand(sender, text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "/time":
		return time.Now().Format("2006-01-02 15:04:05"), true
	case "/roll":
		n := rand.Intn(99) + 1
		return fmt.Sprintf("%s rolled a lucky number: %d", sender, n), true
	case "/help":
		return botHelpText, true
	}
	return "", false
}
