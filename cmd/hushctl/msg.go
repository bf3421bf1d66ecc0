// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"

	"github.com/urfave/cli"

	"github.com/hushcomm/hush/msg"
	"github.com/hushcomm/hush/ratchet"
)

func (hc *ctl) msgCommand() cli.Command {
	flags := []cli.Flag{
		cli.StringFlag{
			Name:  "thread",
			Usage: "thread ID",
		},
		cli.StringFlag{
			Name:  "local",
			Usage: "party ID of this side",
		},
		cli.StringFlag{
			Name:  "peer",
			Usage: "party ID of the other side",
		},
		cli.StringFlag{
			Name:  "in",
			Usage: "read input from file (default: stdin)",
		},
		cli.StringFlag{
			Name:  "out",
			Usage: "write output to file (default: stdout)",
		},
	}
	before := func(c *cli.Context) error {
		if err := checkSuperfluousArgs(c); err != nil {
			return err
		}
		return requireFlags(c, "thread", "local", "peer")
	}
	return cli.Command{
		Name:  "msg",
		Usage: "Commands for messages",
		Subcommands: []cli.Command{
			{
				Name:   "encrypt",
				Usage:  "Encrypt a message, write its envelope",
				Flags:  flags,
				Before: before,
				Action: func(c *cli.Context) error {
					return hc.msgEncrypt(c)
				},
			},
			{
				Name:   "decrypt",
				Usage:  "Decrypt an envelope, write its plaintext",
				Flags:  flags,
				Before: before,
				Action: func(c *cli.Context) error {
					return hc.msgDecrypt(c)
				},
			},
		},
	}
}

func (hc *ctl) msgEncrypt(c *cli.Context) error {
	plaintext, err := inputData(c)
	if err != nil {
		return err
	}
	manager, err := hc.newManager()
	if err != nil {
		return err
	}
	engine := ratchet.New(manager, ratchet.WithLogger(hc.log))
	defer engine.Close()
	env, err := engine.Encrypt(context.Background(), ratchet.EncryptArgs{
		ThreadID:  c.String("thread"),
		LocalID:   c.String("local"),
		PeerID:    c.String("peer"),
		Plaintext: plaintext,
	})
	if err != nil {
		return err
	}
	jsn, err := env.Marshal()
	if err != nil {
		return err
	}
	return writeOutput(c, append(jsn, '\n'))
}

func (hc *ctl) msgDecrypt(c *cli.Context) error {
	jsn, err := inputData(c)
	if err != nil {
		return err
	}
	env, err := msg.Parse(jsn)
	if err != nil {
		return err
	}
	manager, err := hc.newManager()
	if err != nil {
		return err
	}
	engine := ratchet.New(manager, ratchet.WithLogger(hc.log))
	defer engine.Close()
	plaintext, err := engine.Decrypt(context.Background(), ratchet.DecryptArgs{
		ThreadID: c.String("thread"),
		LocalID:  c.String("local"),
		PeerID:   c.String("peer"),
		Envelope: env,
	})
	if err != nil {
		return err
	}
	return writeOutput(c, plaintext)
}
