package hci

import (
	"fmt"
	"time"

	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/evt"
)

// TransactionID identifies a submitted command. Zero means rejected.
type TransactionID uint64

// CommandCallback receives the events of a transaction. Synchronous
// commands see exactly one event. Asynchronous commands see the
// successful Command Status and then their completion event, or only a
// failed Command Status.
type CommandCallback func(id TransactionID, e evt.Packet)

// eventKind names the three independent event code spaces.
type eventKind int

const (
	kindGeneric eventKind = iota
	kindLEMeta
	kindVendor
)

func (k eventKind) String() string {
	switch k {
	case kindGeneric:
		return "generic"
	case kindLEMeta:
		return "le_meta"
	case kindVendor:
		return "vendor"
	default:
		return fmt.Sprintf("eventKind(%d)", int(k))
	}
}

// handlerKey is one code in one code space.
type handlerKey struct {
	kind eventKind
	code uint8
}

func (k handlerKey) String() string {
	return fmt.Sprintf("%v 0x%02X", k.kind, k.code)
}

// Completion tells a transaction which event finishes it.
type Completion struct {
	key handlerKey
}

// CompleteOnCommandComplete finishes on the Command Complete for the opcode.
func CompleteOnCommandComplete() Completion {
	return Completion{handlerKey{kindGeneric, evt.CommandCompleteCode}}
}

// CompleteOnCommandStatus finishes on the Command Status for the opcode.
func CompleteOnCommandStatus() Completion {
	return Completion{handlerKey{kindGeneric, evt.CommandStatusCode}}
}

// CompleteOnEvent finishes on a later event with the given code; the
// Command Status in between is delivered too.
func CompleteOnEvent(code uint8) Completion {
	return Completion{handlerKey{kindGeneric, code}}
}

// CompleteOnLEMetaEvent finishes on a later LE Meta event with the given
// subevent code.
func CompleteOnLEMetaEvent(subevent uint8) Completion {
	return Completion{handlerKey{kindLEMeta, subevent}}
}

// Async reports whether the completion is an event other than Command
// Complete or Command Status.
func (c Completion) Async() bool {
	if c.key.kind != kindGeneric {
		return true
	}
	return c.key.code != evt.CommandCompleteCode && c.key.code != evt.CommandStatusCode
}

func (c Completion) String() string {
	return c.key.String()
}

type transaction struct {
	id         TransactionID
	opcode     cmd.OpCode
	completion Completion
	exclusions map[cmd.OpCode]struct{}
	callback   CommandCallback

	// handlerID is the transient event handler owned by this transaction, if any.
	handlerID HandlerID
	timer     Timer
}

func newTransaction(id TransactionID, op cmd.OpCode, completion Completion, cb CommandCallback, exclusions []cmd.OpCode) *transaction {
	t := &transaction{
		id:         id,
		opcode:     op,
		completion: completion,
		callback:   cb,
		exclusions: make(map[cmd.OpCode]struct{}, len(exclusions)+1),
	}
	t.exclusions[op] = struct{}{}
	for _, x := range exclusions {
		t.exclusions[x] = struct{}{}
	}
	return t
}

func (t *transaction) start(clock Clock, d time.Duration, onTimeout func()) {
	t.stopTimer()
	t.timer = clock.AfterFunc(d, onTimeout)
}

func (t *transaction) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// complete stops the expiry timer and hands e to the callback. It may be
// called more than once for asynchronous commands.
func (t *transaction) complete(e evt.Packet) {
	t.stopTimer()
	if t.callback != nil {
		t.callback(t.id, e)
	}
}

func (t *transaction) String() string {
	return fmt.Sprintf("transaction %d %v", t.id, t.opcode)
}
