// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/hushcomm/hush/msg"
	"github.com/hushcomm/hush/relay"
)

func (hc *ctl) relayCommand() cli.Command {
	urlFlag := cli.StringFlag{
		Name:  "url",
		Usage: "URL of the relay server",
	}
	threadFlag := cli.StringFlag{
		Name:  "thread",
		Usage: "thread ID",
	}
	certFlag := cli.StringFlag{
		Name:  "cert",
		Usage: "pin the given PEM certificate for HTTPS relay URLs",
	}
	return cli.Command{
		Name:  "relay",
		Usage: "Commands to exchange envelopes with a relay server",
		Subcommands: []cli.Command{
			{
				Name:  "deliver",
				Usage: "Deliver an envelope to the relay",
				Flags: []cli.Flag{
					urlFlag,
					threadFlag,
					certFlag,
					cli.StringFlag{
						Name:  "in",
						Usage: "read envelope from file (default: stdin)",
					},
				},
				Before: func(c *cli.Context) error {
					if err := checkSuperfluousArgs(c); err != nil {
						return err
					}
					return requireFlags(c, "url", "thread")
				},
				Action: func(c *cli.Context) error {
					return hc.relayDeliver(c)
				},
			},
			{
				Name:  "fetch",
				Usage: "Fetch queued envelopes from the relay",
				Flags: []cli.Flag{
					urlFlag,
					threadFlag,
					certFlag,
					cli.IntFlag{
						Name:  "max",
						Usage: "maximum number of envelopes to fetch (default: server maximum)",
					},
					cli.StringFlag{
						Name:  "out",
						Usage: "write envelopes to file (default: stdout)",
					},
				},
				Before: func(c *cli.Context) error {
					if err := checkSuperfluousArgs(c); err != nil {
						return err
					}
					return requireFlags(c, "url", "thread")
				},
				Action: func(c *cli.Context) error {
					return hc.relayFetch(c)
				},
			},
		},
	}
}

func (hc *ctl) relayClient(c *cli.Context) (*relay.Client, error) {
	opts := []relay.ClientOption{relay.WithClientLogger(hc.log)}
	if c.IsSet("cert") {
		pem, err := os.ReadFile(c.String("cert"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, relay.WithRootCA(pem))
	}
	return relay.NewClient(c.String("url"), opts...)
}

func (hc *ctl) relayDeliver(c *cli.Context) error {
	jsn, err := inputData(c)
	if err != nil {
		return err
	}
	env, err := msg.Parse(jsn)
	if err != nil {
		return err
	}
	client, err := hc.relayClient(c)
	if err != nil {
		return err
	}
	depth, err := client.Deliver(context.Background(), c.String("thread"), env)
	if err != nil {
		return err
	}
	fmt.Printf("delivered (queue depth %d)\n", depth)
	return nil
}

func (hc *ctl) relayFetch(c *cli.Context) error {
	client, err := hc.relayClient(c)
	if err != nil {
		return err
	}
	envs, err := client.Fetch(context.Background(), c.String("thread"), c.Int("max"))
	if err != nil {
		return err
	}
	var out []byte
	for _, env := range envs {
		jsn, err := env.Marshal()
		if err != nil {
			return err
		}
		out = append(out, jsn...)
		out = append(out, '\n')
	}
	if err := writeOutput(c, out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "fetched %d envelope(s)\n", len(envs))
	return nil
}
