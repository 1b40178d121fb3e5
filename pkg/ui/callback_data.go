package ui

import (
	"errors"
	"strconv"
	"strings"
)

const MaxCallbackDataLen = 64

// Noop marks buttons that only display information.
const Noop = "noop"

// Namespace groups callbacks by the flow that handles them.
type Namespace string

const (
	NSSettings   Namespace = "s"
	NSEvents     Namespace = "ev"
	NSWishes     Namespace = "w"
	NSQuestion   Namespace = "q"
	NSMemory     Namespace = "m"
	NSMovies     Namespace = "mv"
	NSIdeas      Namespace = "di"
	NSUnlink     Namespace = "u"
	NSCompliment Namespace = "c"
)

type argKind int

const (
	argNone argKind = iota
	argNumber
	argWord
)

// Action names per namespace.
const (
	ActHome         = "home"
	ActClose        = "close"
	ActRemindersOn  = "rem_on"
	ActRemindersOff = "rem_off"
	ActReminderTime = "rem_time"
	ActQuestionOn   = "q_on"
	ActQuestionOff  = "q_off"
	ActQuestionTime = "q_time"

	ActPeriod = "period"
	ActDate   = "date"
	ActDelete = "del"
	ActPage   = "page"
	ActSkip   = "skip"

	ActMine     = "mine"
	ActPartner  = "partner"
	ActBook     = "book"
	ActUnbook   = "unbook"
	ActSkipLink = "skip_link"
	ActSkipPic  = "skip_photo"

	ActAnswer  = "answer"
	ActArchive = "arch"

	ActView = "view"

	ActGenre   = "genre"
	ActAnother = "another"
	ActAdd     = "add"
	ActWatch   = "watch"

	ActToggle = "toggle"

	ActConfirm = "yes"
	ActCancel  = "no"

	ActNow   = "now"
	ActLater = "later"
)

var callbackActions = map[Namespace]map[string]argKind{
	NSSettings: {
		ActHome: argNone, ActClose: argNone,
		ActRemindersOn: argNone, ActRemindersOff: argNone, ActReminderTime: argNone,
		ActQuestionOn: argNone, ActQuestionOff: argNone, ActQuestionTime: argNone,
	},
	NSEvents: {
		ActPeriod: argWord, ActDate: argWord, ActDelete: argNumber, ActPage: argNumber, ActSkip: argNone,
	},
	NSWishes: {
		ActMine: argNone, ActPartner: argNone, ActBook: argNumber, ActUnbook: argNumber,
		ActDelete: argNumber, ActPage: argNumber, ActSkipLink: argNone, ActSkipPic: argNone,
	},
	NSQuestion: {ActAnswer: argNone, ActArchive: argNumber},
	NSMemory:   {ActView: argNumber},
	NSMovies: {
		ActGenre: argWord, ActAnother: argNone, ActAdd: argNone, ActWatch: argNone,
		ActDelete: argNumber, ActPage: argNumber,
	},
	NSIdeas:      {ActToggle: argNumber, ActDelete: argNumber, ActPage: argNumber},
	NSUnlink:     {ActConfirm: argNone, ActCancel: argNone},
	NSCompliment: {ActNow: argNone, ActLater: argNone, ActSkip: argNone, ActDate: argWord},
}

// Callback is a decoded button press.
type Callback struct {
	NS     Namespace
	Action string
	Arg    string
}

// Number returns the numeric argument.
func (c Callback) Number() int {
	n, _ := strconv.Atoi(c.Arg)
	return n
}

// ID returns the numeric argument as a row id.
func (c Callback) ID() uint {
	return uint(c.Number())
}

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidAction       = errors.New("invalid callback action")
	errInvalidValue        = errors.New("invalid callback value")
	errCallbackDataTooLong = errors.New("callback data too long")
)

// BuildCallback encodes ns:action[:arg], validating it against the action table.
func BuildCallback(ns Namespace, action string, arg ...string) (string, error) {
	kinds, ok := callbackActions[ns]
	if !ok {
		return "", errInvalidPrefix
	}
	kind, ok := kinds[action]
	if !ok {
		return "", errInvalidAction
	}
	data := string(ns) + ":" + action
	switch kind {
	case argNone:
		if len(arg) != 0 {
			return "", errInvalidValue
		}
	default:
		if len(arg) != 1 || !validArg(kind, arg[0]) {
			return "", errInvalidValue
		}
		data += ":" + arg[0]
	}
	return validateCallbackData(data)
}

// BuildNumberCallback encodes a callback carrying a non-negative number.
func BuildNumberCallback(ns Namespace, action string, n int) (string, error) {
	if n < 0 {
		return "", errInvalidValue
	}
	return BuildCallback(ns, action, strconv.Itoa(n))
}

func ParseCallbackData(data string) (Callback, error) {
	if data == "" {
		return Callback{}, errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return Callback{}, errCallbackDataTooLong
	}
	parts := strings.Split(data, ":")
	kinds, ok := callbackActions[Namespace(parts[0])]
	if !ok {
		return Callback{}, errInvalidPrefix
	}
	if len(parts) < 2 || len(parts) > 3 {
		return Callback{}, errInvalidAction
	}
	kind, ok := kinds[parts[1]]
	if !ok {
		return Callback{}, errInvalidAction
	}
	cb := Callback{NS: Namespace(parts[0]), Action: parts[1]}
	switch {
	case kind == argNone && len(parts) == 2:
		return cb, nil
	case kind != argNone && len(parts) == 3 && validArg(kind, parts[2]):
		cb.Arg = parts[2]
		return cb, nil
	default:
		return Callback{}, errInvalidValue
	}
}

func validArg(kind argKind, value string) bool {
	switch kind {
	case argNumber:
		return isASCIIUnsignedInt(value) && len(value) <= 18
	case argWord:
		return isASCIIWord(value)
	default:
		return false
	}
}

func validateCallbackData(data string) (string, error) {
	if data == "" {
		return "", errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func isASCIIUnsignedInt(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}

func isASCIIWord(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}
