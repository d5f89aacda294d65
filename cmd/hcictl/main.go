package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rigado/hcicore"
	"github.com/rigado/hcicore/cache"
	"github.com/rigado/hcicore/linux/hci"
	"github.com/rigado/hcicore/linux/hci/cmd"
	"github.com/rigado/hcicore/linux/hci/controller"
	"github.com/rigado/hcicore/linux/hci/evt"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "hcictl"
	app.Usage = "bring up a bluetooth controller and send it HCI commands"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "device, d",
			Value: -1,
			Usage: "HCI user channel device id, -1 for the first available",
		},
		cli.StringFlag{
			Name:  "uart, u",
			Usage: "H4 UART path, instead of the user channel",
		},
		cli.UintFlag{
			Name:  "baud, b",
			Usage: "H4 UART baud rate",
		},
		cli.StringFlag{
			Name:  "socket, s",
			Usage: "H4 TCP address, instead of the user channel",
		},
		cli.DurationFlag{
			Name:  "timeout, t",
			Value: hci.DefaultCommandTimeout,
			Usage: "command timeout",
		},
		cli.BoolFlag{
			Name:  "json, j",
			Usage: "print results as JSON",
		},
		cli.StringFlag{
			Name:  "log-level, l",
			Value: "info",
			Usage: "log level (trace, debug, info, warn, error)",
		},
	}
	app.Before = func(c *cli.Context) error {
		return hcicore.SetLogLevel(c.GlobalString("log-level"))
	}
	app.Commands = []cli.Command{
		{
			Name:   "info",
			Usage:  "bring up the controller and print what it reports",
			Action: infoCommand,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "cache, c",
					Usage: "record the result in this JSON file",
				},
				cli.BoolFlag{
					Name:  "cached",
					Usage: "print the controllers recorded in --cache without opening a device",
				},
			},
		},
		{
			Name:   "reset",
			Usage:  "send HCI Reset",
			Action: resetCommand,
		},
		{
			Name:      "vendor",
			Usage:     "send a vendor specific command after bring-up",
			ArgsUsage: "<ocf> [hex parameters]",
			Action:    vendorCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options(c *cli.Context) []hcicore.Option {
	opts := []hcicore.Option{
		hcicore.OptCommandTimeout(c.GlobalDuration("timeout")),
		hcicore.OptErrorHandler(func(err error) {
			hcicore.GetLogger().Errorf("controller failed: %v", err)
		}),
	}
	switch {
	case c.GlobalString("uart") != "":
		opts = append(opts, hcicore.OptTransportH4Uart(c.GlobalString("uart"), c.GlobalUint("baud")))
	case c.GlobalString("socket") != "":
		opts = append(opts, hcicore.OptTransportH4Socket(c.GlobalString("socket"), time.Second))
	default:
		opts = append(opts, hcicore.OptTransportHCISocket(c.GlobalInt("device")))
	}
	return opts
}

// open brings up the controller; the caller closes it.
func open(c *cli.Context) (*controller.HCI, error) {
	h, err := controller.New(options(c)...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := h.Init(ctx); err != nil {
		return nil, errors.Wrap(err, "can't init controller")
	}
	return h, nil
}

func infoCommand(c *cli.Context) error {
	if c.Bool("cached") {
		if c.String("cache") == "" {
			return errors.New("--cached needs --cache")
		}
		all, err := cache.New(c.String("cache")).All()
		if err != nil {
			return err
		}
		return output(c, all)
	}

	h, err := open(c)
	if err != nil {
		return err
	}
	defer h.Close()

	info := h.Info()
	if f := c.String("cache"); f != "" {
		if err := cache.New(f).Store(info, true); err != nil {
			return errors.Wrap(err, "can't update cache")
		}
	}
	return output(c, info)
}

func resetCommand(c *cli.Context) error {
	h, err := open(c)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.GlobalDuration("timeout"))
	defer cancel()
	return h.Send(ctx, &cmd.Reset{}, nil)
}

func vendorCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("missing ocf")
	}
	var ocf uint16
	if _, err := fmt.Sscanf(c.Args().Get(0), "0x%x", &ocf); err != nil {
		return errors.Wrapf(err, "invalid ocf %q", c.Args().Get(0))
	}
	params, err := hex.DecodeString(c.Args().Get(1))
	if err != nil {
		return errors.Wrap(err, "invalid parameters")
	}
	if len(params) > cmd.MaxParameterLength {
		return errors.Errorf("%d parameter bytes, max %d", len(params), cmd.MaxParameterLength)
	}

	var payload interface{}
	if len(params) > 0 {
		payload = params
	}
	vc, err := cmd.NewVendorCommand(ocf, uint8(len(params)), payload)
	if err != nil {
		return err
	}

	h, err := open(c)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx, cancel := context.WithTimeout(context.Background(), c.GlobalDuration("timeout"))
	defer cancel()
	e, err := h.Exchange(ctx, cmd.FromCommand(vc), hci.CompleteOnCommandComplete())
	if err != nil {
		return err
	}
	if e.Code() == evt.CommandStatusCode {
		if s := e.CommandStatus().Status(); s != 0x00 {
			return hci.ErrCommand(s)
		}
		return errors.Errorf("%v answered with command status only", vc.OpCode())
	}
	return output(c, map[string]string{
		"opcode":            vc.OpCode().String(),
		"return_parameters": hex.EncodeToString(e.CommandComplete().ReturnParameters()),
	})
}

func output(c *cli.Context, v interface{}) error {
	if c.GlobalBool("json") {
		out, err := jsoniter.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}
	fmt.Printf("%+v\n", v)
	return nil
}
