// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli"

	"github.com/hushcomm/hush/session"
)

func (hc *ctl) keysCommand() cli.Command {
	threadFlag := cli.StringFlag{
		Name:  "thread",
		Usage: "thread ID",
	}
	return cli.Command{
		Name:  "keys",
		Usage: "Commands for session keys",
		Subcommands: []cli.Command{
			{
				Name:  "rotate",
				Usage: "Rotate the thread's session key",
				Flags: []cli.Flag{threadFlag},
				Before: func(c *cli.Context) error {
					if err := checkSuperfluousArgs(c); err != nil {
						return err
					}
					return requireFlags(c, "thread")
				},
				Action: func(c *cli.Context) error {
					return hc.keysRotate(c.String("thread"))
				},
			},
			{
				Name:  "show",
				Usage: "Show the thread's session key records",
				Flags: []cli.Flag{threadFlag},
				Before: func(c *cli.Context) error {
					if err := checkSuperfluousArgs(c); err != nil {
						return err
					}
					return requireFlags(c, "thread")
				},
				Action: func(c *cli.Context) error {
					return hc.keysShow(c.String("thread"))
				},
			},
		},
	}
}

func (hc *ctl) keysRotate(threadID string) error {
	manager, err := hc.newManager()
	if err != nil {
		return err
	}
	rec, err := manager.Rotate(context.Background(), threadID)
	if err != nil {
		return err
	}
	fmt.Printf("rotated thread %s\n", threadID)
	fmt.Printf("new key %s (expires %s)\n", rec.ID, rec.ExpiresAt.Format("2006-01-02 15:04:05"))
	return nil
}

func (hc *ctl) keysShow(threadID string) error {
	store, err := hc.openStore()
	if err != nil {
		return err
	}
	ctx := context.Background()
	var records []*session.Record
	active, err := store.GetActive(ctx, threadID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}
	if active != nil {
		records = append(records, active)
	}
	rotating, err := store.GetRotating(ctx, threadID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}
	if rotating != nil {
		records = append(records, rotating)
	}
	if len(records) == 0 {
		fmt.Printf("no live session keys for thread %s\n", threadID)
		return nil
	}
	count, err := store.MessageCount(ctx, threadID)
	if err != nil {
		return err
	}
	fmt.Printf("thread %s (%d messages since last rotation)\n", threadID, count)
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPUBLIC KEY\tCREATED\tEXPIRES\tPREVIOUS")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.Status,
			hex.EncodeToString(rec.PublicKey[:]),
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.ExpiresAt.Format("2006-01-02 15:04:05"),
			rec.PreviousKeyID)
	}
	return w.Flush()
}
