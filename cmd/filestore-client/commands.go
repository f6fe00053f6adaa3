package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/cli"
	"github.com/spf13/pflag"
)

// baseFlags are the flags every subcommand accepts: which socket to talk
// to, whether to narrate each round trip, and how long to keep retrying a
// connection before giving up (mirroring openConnection's msec/abstime
// retry loop).
type baseFlags struct {
	fs      *pflag.FlagSet
	sock    *string
	verbose *bool
	timeout *time.Duration
}

func newBaseFlags(name string) *baseFlags {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	return &baseFlags{
		fs:      fs,
		sock:    fs.StringP("socket", "s", "", "path to the server's Unix socket"),
		verbose: fs.BoolP("verbose", "v", false, "print each request's outcome"),
		timeout: fs.Duration("connect-timeout", 3*time.Second, "how long to keep retrying the connection"),
	}
}

func (b *baseFlags) connect() (*client, error) {
	if *b.sock == "" {
		return nil, fmt.Errorf("-socket is required")
	}
	return dial(*b.sock, *b.timeout, *b.verbose)
}

type openCommand struct{}

func (openCommand) Help() string {
	return "Usage: filestore-client open [-create] [-lock] [-dir DIR] -socket PATH NAME"
}
func (openCommand) Synopsis() string { return "open (and optionally create/lock) a file" }
func (openCommand) Run(args []string) int {
	f := newBaseFlags("open")
	create := f.fs.Bool("create", false, "create the file if it doesn't exist")
	lock := f.fs.Bool("lock", false, "acquire the lock on open")
	dir := f.fs.String("dir", "", "save any files evicted by this open to DIR")
	if err := f.fs.Parse(args); err != nil {
		return 1
	}
	if f.fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, openCommand{}.Help())
		return 1
	}
	c, err := f.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.close()
	if err := c.openFile(f.fs.Arg(0), *create, *lock, *dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

type readCommand struct{}

func (readCommand) Help() string     { return "Usage: filestore-client read -socket PATH NAME" }
func (readCommand) Synopsis() string { return "read a file's contents to stdout" }
func (readCommand) Run(args []string) int {
	f := newBaseFlags("read")
	if err := f.fs.Parse(args); err != nil {
		return 1
	}
	if f.fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, readCommand{}.Help())
		return 1
	}
	c, err := f.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.close()
	data, err := c.readFile(f.fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	os.Stdout.Write(data)
	return 0
}

type readNCommand struct{}

func (readNCommand) Help() string { return "Usage: filestore-client read-n [-n COUNT] [-dir DIR] -socket PATH" }
func (readNCommand) Synopsis() string { return "read up to N files, optionally saving them to dir" }
func (readNCommand) Run(args []string) int {
	f := newBaseFlags("read-n")
	n := f.fs.Int("n", 0, "how many files to read (0 = all)")
	dir := f.fs.String("dir", "", "directory to save read files into")
	if err := f.fs.Parse(args); err != nil {
		return 1
	}
	c, err := f.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.close()
	files, err := c.readNFiles(*n, *dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	for _, fd := range files {
		fmt.Println(fd.Name)
	}
	return 0
}

type writeCommand struct{}

func (writeCommand) Help() string     { return "Usage: filestore-client write [-dir DIR] -socket PATH LOCALFILE" }
func (writeCommand) Synopsis() string { return "upload a local file, requires a prior open -create -lock" }
func (writeCommand) Run(args []string) int {
	f := newBaseFlags("write")
	dir := f.fs.String("dir", "", "directory to save evicted files into")
	if err := f.fs.Parse(args); err != nil {
		return 1
	}
	if f.fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, writeCommand{}.Help())
		return 1
	}
	data, err := os.ReadFile(f.fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	c, err := f.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.close()
	if err := c.writeFile(f.fs.Arg(0), data, *dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

type appendCommand struct{}

func (appendCommand) Help() string     { return "Usage: filestore-client append [-dir DIR] -socket PATH NAME DATA" }
func (appendCommand) Synopsis() string { return "append bytes to an already-open file" }
func (appendCommand) Run(args []string) int {
	f := newBaseFlags("append")
	dir := f.fs.String("dir", "", "directory to save evicted files into")
	if err := f.fs.Parse(args); err != nil {
		return 1
	}
	if f.fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, appendCommand{}.Help())
		return 1
	}
	c, err := f.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.close()
	if err := c.appendFile(f.fs.Arg(0), []byte(f.fs.Arg(1)), *dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

type lockCommand struct{}

func (lockCommand) Help() string     { return "Usage: filestore-client lock -socket PATH NAME" }
func (lockCommand) Synopsis() string { return "acquire mutual exclusion over a file" }
func (lockCommand) Run(args []string) int { return runNameOnly("lock", args, (*client).lockFile) }

type unlockCommand struct{}

func (unlockCommand) Help() string     { return "Usage: filestore-client unlock -socket PATH NAME" }
func (unlockCommand) Synopsis() string { return "release mutual exclusion over a file" }
func (unlockCommand) Run(args []string) int { return runNameOnly("unlock", args, (*client).unlockFile) }

type closeCommand struct{}

func (closeCommand) Help() string     { return "Usage: filestore-client close -socket PATH NAME" }
func (closeCommand) Synopsis() string { return "close a file" }
func (closeCommand) Run(args []string) int { return runNameOnly("close", args, (*client).closeFile) }

type removeCommand struct{}

func (removeCommand) Help() string     { return "Usage: filestore-client remove -socket PATH NAME" }
func (removeCommand) Synopsis() string { return "delete a file, requires holding its lock" }
func (removeCommand) Run(args []string) int { return runNameOnly("remove", args, (*client).removeFile) }

func runNameOnly(name string, args []string, op func(*client, string) error) int {
	f := newBaseFlags(name)
	if err := f.fs.Parse(args); err != nil {
		return 1
	}
	if f.fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: filestore-client %s -socket PATH NAME\n", name)
		return 1
	}
	c, err := f.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.close()
	if err := op(c, f.fs.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// commandFactories wires every cli.Command into the mitchellh/cli.CLI
// dispatch table keyed by subcommand name.
func commandFactories() map[string]cli.CommandFactory {
	return map[string]cli.CommandFactory{
		"open":    func() (cli.Command, error) { return openCommand{}, nil },
		"read":    func() (cli.Command, error) { return readCommand{}, nil },
		"read-n":  func() (cli.Command, error) { return readNCommand{}, nil },
		"write":   func() (cli.Command, error) { return writeCommand{}, nil },
		"append":  func() (cli.Command, error) { return appendCommand{}, nil },
		"lock":    func() (cli.Command, error) { return lockCommand{}, nil },
		"unlock":  func() (cli.Command, error) { return unlockCommand{}, nil },
		"close":   func() (cli.Command, error) { return closeCommand{}, nil },
		"remove":  func() (cli.Command, error) { return removeCommand{}, nil },
		"shell":   func() (cli.Command, error) { return shellCommand{}, nil },
		"batch":   func() (cli.Command, error) { return batchCommand{}, nil },
	}
}
