package tui

import (
	"github.com/bamaolink/excalidraw/internal/model"
)

type screen int

const (
	screenSignIn screen = iota
	screenFiles
)

type modalKind int

const (
	modalNone modalKind = iota
	modalRename
	modalConfirmDelete
	modalHelp
)

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

type signInField int

const (
	signInEmail signInField = iota
	signInPassword
	signInSubmit
)

// Results of controller calls made from tea.Cmds. They are applied in Update, in the
// order they complete.

type restoredMsg struct {
	username string
	signedIn bool
	err      error
}

type loadDoneMsg struct{ err error }

type saveDoneMsg struct{ err error }

type selectDoneMsg struct {
	id  int64
	err error
}

type createDoneMsg struct {
	doc model.Document
	err error
}

type updateDoneMsg struct {
	id  int64
	err error
}

type removeDoneMsg struct {
	id  int64
	err error
}

type signInDoneMsg struct {
	user model.UserInfo
	err  error
}

type signOutDoneMsg struct{}

type toastsChangedMsg struct{ signIn bool }

type sessionChangedMsg struct{}

type flashDoneMsg struct{ seq int }

// sessionReadMsg carries the session as re-read after another process wrote it.
type sessionReadMsg struct {
	sess model.Session
	err  error
}

type externalEditorDoneMsg struct{ err error }
