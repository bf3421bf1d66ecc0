// Copyright (c) 2026 Hush Communications Ltd.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// hushctl is the operator command line tool for Hush. It manages session
// key databases, rotates and inspects thread keys, encrypts and decrypts
// messages, and talks to a message relay.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/urfave/cli"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/hushcomm/hush/def/version"
	"github.com/hushcomm/hush/release"
	"github.com/hushcomm/hush/session"
	"github.com/hushcomm/hush/session/badgerdb"
	"github.com/hushcomm/hush/session/memstore"
	"github.com/hushcomm/hush/util"
)

func init() {
	cli.VersionPrinter = release.PrintVersion
}

// ctl bundles the state shared by all hushctl commands.
type ctl struct {
	datadir      string
	store        string
	passphraseFP *os.File
	log          zerolog.Logger
	app          *cli.App

	closers []io.Closer
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hush"
	}
	return filepath.Join(home, ".hush")
}

func (hc *ctl) prepare(c *cli.Context) error {
	hc.datadir = c.GlobalString("datadir")
	hc.store = c.GlobalString("store")
	hc.passphraseFP = os.NewFile(uintptr(c.GlobalInt("passphrase-fd")),
		"passphrase-fd")

	if err := util.CreateDirs(hc.datadir); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(c.GlobalString("loglevel"))
	if err != nil {
		return fmt.Errorf("unknown log level %q", c.GlobalString("loglevel"))
	}
	hc.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	return nil
}

// openStore opens the selected session store backend. The store is closed
// by the app's After hook.
func (hc *ctl) openStore() (session.Store, error) {
	switch hc.store {
	case "memory":
		return memstore.New(), nil
	case "badger":
		store, err := badgerdb.New(filepath.Join(hc.datadir, "sessions"))
		if err != nil {
			return nil, err
		}
		hc.closers = append(hc.closers, store)
		return store, nil
	case "keydb":
		store, err := hc.openKeyDB()
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", hc.store)
}

func (hc *ctl) newManager() (*session.Manager, error) {
	store, err := hc.openStore()
	if err != nil {
		return nil, err
	}
	return session.NewManager(store, session.WithLogger(hc.log)), nil
}

func (hc *ctl) keydbName() string {
	return filepath.Join(hc.datadir, "keys.db")
}

// readPassphrases reads n passphrase lines from the passphrase file
// descriptor. The caller wipes the returned slices after use.
func (hc *ctl) readPassphrases(n int) ([][]byte, error) {
	passphrases := make([][]byte, 0, n)
	scanner := bufio.NewScanner(hc.passphraseFP)
	for i := 0; i < n; i++ {
		if terminal.IsTerminal(int(hc.passphraseFP.Fd())) {
			fmt.Fprintf(os.Stderr, "passphrase: ")
			passphrase, err := terminal.ReadPassword(int(hc.passphraseFP.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return nil, err
			}
			passphrases = append(passphrases, passphrase)
			continue
		}
		if scanner.Scan() {
			passphrases = append(passphrases, append([]byte(nil), scanner.Bytes()...))
		} else if err := scanner.Err(); err != nil {
			return nil, err
		} else {
			return nil, fmt.Errorf("could not read passphrase from fd %d",
				hc.passphraseFP.Fd())
		}
	}
	return passphrases, nil
}

func checkSuperfluousArgs(c *cli.Context) error {
	if len(c.Args()) > 0 {
		return fmt.Errorf("superfluous argument(s): %s", strings.Join(c.Args(), " "))
	}
	return nil
}

func requireFlags(c *cli.Context, names ...string) error {
	for _, name := range names {
		if !c.IsSet(name) {
			return fmt.Errorf("option --%s is mandatory", name)
		}
	}
	return nil
}

// inputData reads the data a command works on, from the file given with
// --in or from stdin.
func inputData(c *cli.Context) ([]byte, error) {
	if c.IsSet("in") {
		return os.ReadFile(c.String("in"))
	}
	return io.ReadAll(os.Stdin)
}

// outputWriter returns the writer a command's result goes to, the file
// given with --out or stdout.
func outputWriter(c *cli.Context) (io.WriteCloser, error) {
	if c.IsSet("out") {
		return os.OpenFile(c.String("out"), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	}
	return os.Stdout, nil
}

func writeOutput(c *cli.Context, data []byte) error {
	out, err := outputWriter(c)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		return err
	}
	if out != os.Stdout {
		return out.Close()
	}
	return nil
}

func newCtl() *ctl {
	hc := new(ctl)
	hc.app = cli.NewApp()
	hc.app.Name = "hushctl"
	hc.app.Usage = "tool to manage Hush session keys, messages, and relays"
	hc.app.Version = version.Number
	hc.app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "datadir",
			Value: defaultDataDir(),
			Usage: "set data directory",
		},
		cli.StringFlag{
			Name:  "store",
			Value: "badger",
			Usage: "session store backend {memory, badger, keydb}",
		},
		cli.IntFlag{
			Name:  "passphrase-fd",
			Value: 0,
			Usage: "passphrase file descriptor",
		},
		cli.StringFlag{
			Name:  "loglevel",
			Value: "warn",
			Usage: "logging level {trace, debug, info, warn, error}",
		},
	}
	hc.app.Before = func(c *cli.Context) error {
		return hc.prepare(c)
	}
	hc.app.After = func(c *cli.Context) error {
		for _, closer := range hc.closers {
			if err := closer.Close(); err != nil {
				return err
			}
		}
		return nil
	}
	hc.app.Commands = []cli.Command{
		hc.keysCommand(),
		hc.msgCommand(),
		hc.dbCommand(),
		hc.relayCommand(),
	}
	return hc
}

func main() {
	hc := newCtl()
	if err := hc.app.Run(os.Args); err != nil {
		util.Fatal(err)
	}
}
