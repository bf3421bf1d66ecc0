// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"

	"github.com/urfave/cli"

	"github.com/hushcomm/hush/def"
	"github.com/hushcomm/hush/session/keydb"
	"github.com/hushcomm/hush/util/bzero"
)

func (hc *ctl) dbCommand() cli.Command {
	iterationsFlag := cli.IntFlag{
		Name:  "iterations",
		Value: def.KDFIterations,
		Usage: "number of KDF iterations used to protect the keyfile",
	}
	return cli.Command{
		Name:  "db",
		Usage: "Commands for the encrypted session key database",
		Subcommands: []cli.Command{
			{
				Name:  "create",
				Usage: "Create the database",
				Flags: []cli.Flag{iterationsFlag},
				Before: func(c *cli.Context) error {
					return checkSuperfluousArgs(c)
				},
				Action: func(c *cli.Context) error {
					return hc.dbCreate(c.Int("iterations"))
				},
			},
			{
				Name:  "rekey",
				Usage: "Rekey the database",
				Flags: []cli.Flag{iterationsFlag},
				Before: func(c *cli.Context) error {
					return checkSuperfluousArgs(c)
				},
				Action: func(c *cli.Context) error {
					return hc.dbRekey(c.Int("iterations"))
				},
			},
			{
				Name:  "status",
				Usage: "Show database status",
				Before: func(c *cli.Context) error {
					return checkSuperfluousArgs(c)
				},
				Action: func(c *cli.Context) error {
					return hc.dbStatus()
				},
			},
			{
				Name:  "vacuum",
				Usage: "Do full database rebuild (VACUUM)",
				Flags: []cli.Flag{
					cli.StringFlag{
						Name:  "auto-vacuum",
						Usage: "also change auto_vacuum mode (possible modes: NONE, FULL, INCREMENTAL)",
					},
				},
				Before: func(c *cli.Context) error {
					return checkSuperfluousArgs(c)
				},
				Action: func(c *cli.Context) error {
					return hc.dbVacuum(c.String("auto-vacuum"))
				},
			},
			{
				Name:  "incremental",
				Usage: "Remove free pages in auto_vacuum=INCREMENTAL mode",
				Flags: []cli.Flag{
					cli.IntFlag{
						Name:  "pages",
						Usage: "number of pages to remove (default: all)",
					},
				},
				Before: func(c *cli.Context) error {
					return checkSuperfluousArgs(c)
				},
				Action: func(c *cli.Context) error {
					return hc.dbIncremental(int64(c.Int("pages")))
				},
			},
		},
	}
}

func (hc *ctl) dbCreate(iterations int) error {
	// read passphrase twice for confirmation
	passphrases, err := hc.readPassphrases(2)
	if err != nil {
		return err
	}
	defer wipeAll(passphrases)
	if !bytes.Equal(passphrases[0], passphrases[1]) {
		return fmt.Errorf("passphrases differ")
	}
	if err := keydb.Create(hc.keydbName(), passphrases[0], iterations); err != nil {
		return err
	}
	fmt.Printf("created %s\n", hc.keydbName())
	return nil
}

func (hc *ctl) dbRekey(iterations int) error {
	// read old passphrase, then the new one twice for confirmation
	passphrases, err := hc.readPassphrases(3)
	if err != nil {
		return err
	}
	defer wipeAll(passphrases)
	if !bytes.Equal(passphrases[1], passphrases[2]) {
		return fmt.Errorf("new passphrases differ")
	}
	if err := keydb.Rekey(hc.keydbName(), passphrases[0], passphrases[1], iterations); err != nil {
		return err
	}
	fmt.Printf("rekeyed %s\n", hc.keydbName())
	return nil
}

func (hc *ctl) openKeyDB() (*keydb.Store, error) {
	passphrases, err := hc.readPassphrases(1)
	if err != nil {
		return nil, err
	}
	defer wipeAll(passphrases)
	store, err := keydb.Open(hc.keydbName(), passphrases[0])
	if err != nil {
		return nil, err
	}
	hc.closers = append(hc.closers, store)
	return store, nil
}

func (hc *ctl) dbStatus() error {
	store, err := hc.openKeyDB()
	if err != nil {
		return err
	}
	dbVersion, err := store.Version()
	if err != nil {
		return err
	}
	autoVacuum, freelistCount, err := store.Status()
	if err != nil {
		return err
	}
	fmt.Printf("keydb:\n")
	fmt.Printf("version=%s\n", dbVersion)
	fmt.Printf("auto_vacuum=%s\n", autoVacuum)
	fmt.Printf("freelist_count=%d\n", freelistCount)
	return nil
}

func (hc *ctl) dbVacuum(autoVacuumMode string) error {
	store, err := hc.openKeyDB()
	if err != nil {
		return err
	}
	return store.Vacuum(autoVacuumMode)
}

func (hc *ctl) dbIncremental(pages int64) error {
	store, err := hc.openKeyDB()
	if err != nil {
		return err
	}
	return store.Incremental(pages)
}

func wipeAll(secrets [][]byte) {
	for _, secret := range secrets {
		bzero.Bytes(secret)
	}
}
