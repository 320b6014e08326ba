package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/musegen/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
//
// from is the view-model that produced the message; messages from a view-model that has
// since been torn down are dropped.
type Msg struct {
	kind MsgKind
	from any
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCallDone MsgKind = iota
	MsgNavigate
	MsgStreamOpened
	MsgProgress
	MsgStreamFailed
	MsgStreamClosed
	MsgSnapshotSaved
)

// Call names carried by [MsgCallDone].
const (
	callModels   = "models"
	callSessions = "sessions"
	callRegister = "register"
	callSession  = "session"
	callSample   = "sample"
)

// callDoneMsg is the constructor for [MsgCallDone]; the outcome is read back from the tracker.
func callDoneMsg(from any, call string) Msg {
	return Msg{kind: MsgCallDone, from: from, data: call}
}

// navigateMsg is the constructor for [MsgNavigate]
func navigateMsg(from any, sessionID string) Msg {
	return Msg{kind: MsgNavigate, from: from, data: sessionID}
}

// streamOpenedMsg is the constructor for [MsgStreamOpened]
func streamOpenedMsg(from any, stream *tasks.ProgressStream, err error) Msg {
	return Msg{
		kind: MsgStreamOpened,
		from: from,
		data: struct {
			stream *tasks.ProgressStream
			err    error
		}{stream, err},
	}
}

// progressMsg is the constructor for [MsgProgress]
func progressMsg(from any, p tasks.AccumulatedProgress) Msg {
	return Msg{kind: MsgProgress, from: from, data: p}
}

// streamFailedMsg is the constructor for [MsgStreamFailed]
func streamFailedMsg(from any, reason string) Msg {
	return Msg{kind: MsgStreamFailed, from: from, data: reason}
}

// streamClosedMsg is the constructor for [MsgStreamClosed]
func streamClosedMsg(from any) Msg {
	return Msg{kind: MsgStreamClosed, from: from}
}

// snapshotSavedMsg is the constructor for [MsgSnapshotSaved]
func snapshotSavedMsg(from any, err error) Msg {
	return Msg{kind: MsgSnapshotSaved, from: from, data: err}
}
