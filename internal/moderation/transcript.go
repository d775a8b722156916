package moderation

import (
	"fmt"
	"strings"
)

const DefaultContextSize = 15

const (
	historyHeader = "Conversation history before this message:"
	reviewHeader  = "Message under review:"
)

// TargetMessage is the reported message.
type TargetMessage struct {
	ChatID     int64
	MessageID  int
	AuthorID   int64
	AuthorName string
	Text       string
}

// Assembler turns the cached history before a reported message into a transcript.
type Assembler struct {
	history *History
	size    int
}

func NewAssembler(history *History, size int) *Assembler {
	if size < 0 {
		size = DefaultContextSize
	}
	return &Assembler{history: history, size: size}
}

// Build returns the transcript for target and the number of prior messages it includes.
func (a *Assembler) Build(target TargetMessage) (string, int) {
	var b strings.Builder
	count := 0
	for msg := range a.history.Before(target.MessageID, a.size) {
		if count == 0 {
			b.WriteString(historyHeader)
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s\n", msg.Author, msg.Text)
		count++
	}
	if count == 0 {
		return fmt.Sprintf("Message from %s: %s", target.AuthorName, target.Text), 0
	}
	fmt.Fprintf(&b, "\n%s\n%s: %s", reviewHeader, target.AuthorName, target.Text)
	return b.String(), count
}
