package task

import "log"

// Discard drops every event.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Log(string)           {}
func (discard) Progress(int)         {}
func (discard) Error(string, string) {}

// LogNotifier writes events as plain log lines.
type LogNotifier struct {
	Logger *log.Logger
	// ShowProgress also logs progress values.
	ShowProgress bool
}

func (n LogNotifier) logger() *log.Logger {
	if n.Logger == nil {
		return log.Default()
	}
	return n.Logger
}

func (n LogNotifier) Log(line string) {
	n.logger().Println(line)
}

func (n LogNotifier) Progress(percent int) {
	if n.ShowProgress {
		n.logger().Printf("[%3d%%]", percent)
	}
}

func (n LogNotifier) Error(title, message string) {
	n.logger().Printf("%s: %s", title, message)
}

// EventKind tells the Event variants apart.
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
	EventError
)

// Event is one notification delivered through a Channel.
type Event struct {
	Kind    EventKind
	Line    string
	Percent int
	Title   string
	Message string
}

// Channel forwards events to a channel. Sends block, so the receiver
// observes every event in order.
type Channel chan<- Event

func (c Channel) Log(line string) {
	c <- Event{Kind: EventLog, Line: line}
}

func (c Channel) Progress(percent int) {
	c <- Event{Kind: EventProgress, Percent: percent}
}

func (c Channel) Error(title, message string) {
	c <- Event{Kind: EventError, Title: title, Message: message}
}
