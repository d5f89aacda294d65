package hci

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/evt"
)

// Exchange submits p on ch through d and blocks until the transaction
// finishes, ctx ends, or the channel stops. It returns the terminal event:
// the Command Complete or Command Status for synchronous completions, the
// completion event or a failed Command Status for asynchronous ones.
//
// Exchange must not be called from the dispatch sequence.
func Exchange(ctx context.Context, d *Dispatcher, ch *CommandChannel, p cmd.Packet, completion Completion, exclusions ...cmd.OpCode) (evt.Packet, error) {
	events := make(chan evt.Packet, 2)
	var id TransactionID

	err := d.Do(ctx, func() {
		id = ch.Submit(p, completion, func(_ TransactionID, e evt.Packet) {
			select {
			case events <- e:
			default:
				// nobody reads past the terminal event
			}
		}, exclusions...)
	})
	if err != nil {
		return nil, err
	}
	if id == 0 {
		select {
		case <-ch.Done():
			return nil, errors.Wrap(ErrChannelInactive, p.OpCode().String())
		default:
			return nil, errors.Wrap(ErrRejected, p.OpCode().String())
		}
	}

	for {
		select {
		case e := <-events:
			if completion.Async() && e.Code() == evt.CommandStatusCode && e.CommandStatus().Status() == 0x00 {
				// the completion event follows
				continue
			}
			return e, nil

		case <-ch.Done():
			return nil, ch.Err()

		case <-ctx.Done():
			d.Post(func() { ch.Cancel(id) })
			return nil, ctx.Err()
		}
	}
}

// Send runs c to its Command Complete and decodes the return parameters
// into rp, which may be nil. A non-zero status is returned as ErrCommand.
func Send(ctx context.Context, d *Dispatcher, ch *CommandChannel, c cmd.Command, rp cmd.ReturnParameters) error {
	e, err := Exchange(ctx, d, ch, cmd.FromCommand(c), CompleteOnCommandComplete())
	if err != nil {
		return err
	}
	return checkStatus(e, rp)
}

func checkStatus(e evt.Packet, rp cmd.ReturnParameters) error {
	switch e.Code() {
	case evt.CommandStatusCode:
		if s := e.CommandStatus().Status(); s != 0x00 {
			return ErrCommand(s)
		}
		return nil

	case evt.CommandCompleteCode:
		b := e.CommandComplete().ReturnParameters()
		if len(b) > 0 && b[0] != 0x00 {
			return ErrCommand(b[0])
		}
		if rp != nil {
			return rp.Unmarshal(b)
		}
		return nil

	default:
		return nil
	}
}
