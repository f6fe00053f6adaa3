package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

// shellCommand opens an interactive line-editing shell against one
// connection, replaying each typed line as a subcommand. It exists for the
// same reason the original client offered a REPL mode: scripting a handful
// of open/write/lock calls by hand is tedious from a cold shell.
type shellCommand struct{}

func (shellCommand) Help() string {
	return "Usage: filestore-client shell -socket PATH\n\n" +
		"Starts an interactive shell. Type 'help' inside it for the command list."
}
func (shellCommand) Synopsis() string { return "interactive shell for issuing requests" }

func (shellCommand) Run(args []string) int {
	f := newBaseFlags("shell")
	if err := f.fs.Parse(args); err != nil {
		return 1
	}
	c, err := f.connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := os.Getenv("FILESTORE_CLIENT_HISTORY")
	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	fmt.Println("filestore-client shell. Type 'help' for commands, 'quit' to exit.")
	for {
		input, err := line.Prompt("filestore> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			break
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		if input == "quit" || input == "exit" {
			break
		}
		runShellLine(c, input)
	}

	if histPath != "" {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	return 0
}

func runShellLine(c *client, input string) {
	fields := strings.Fields(input)
	verb, rest := fields[0], fields[1:]

	var err error
	switch verb {
	case "help":
		fmt.Println("open NAME [create] [lock] | close NAME | read NAME | read-n N |")
		fmt.Println("write NAME LOCALFILE | append NAME DATA | lock NAME | unlock NAME | remove NAME")
		return
	case "open":
		if len(rest) < 1 {
			err = fmt.Errorf("usage: open NAME [create] [lock]")
			break
		}
		create, lock := false, false
		for _, opt := range rest[1:] {
			switch opt {
			case "create":
				create = true
			case "lock":
				lock = true
			}
		}
		err = c.openFile(rest[0], create, lock, "")
	case "close":
		if len(rest) != 1 {
			err = fmt.Errorf("usage: close NAME")
			break
		}
		err = c.closeFile(rest[0])
	case "read":
		if len(rest) != 1 {
			err = fmt.Errorf("usage: read NAME")
			break
		}
		var data []byte
		data, err = c.readFile(rest[0])
		if err == nil {
			fmt.Printf("%s\n", data)
		}
	case "read-n":
		if len(rest) != 1 {
			err = fmt.Errorf("usage: read-n N")
			break
		}
		var n int
		n, err = strconv.Atoi(rest[0])
		if err != nil {
			break
		}
		var names []string
		fs, ferr := c.readNFiles(n, "")
		err = ferr
		for _, fd := range fs {
			names = append(names, fd.Name)
		}
		if err == nil {
			fmt.Println(strings.Join(names, ", "))
		}
	case "write":
		if len(rest) != 2 {
			err = fmt.Errorf("usage: write NAME LOCALFILE")
			break
		}
		var data []byte
		data, err = os.ReadFile(rest[1])
		if err != nil {
			break
		}
		err = c.writeFile(rest[0], data, "")
	case "append":
		if len(rest) < 2 {
			err = fmt.Errorf("usage: append NAME DATA")
			break
		}
		err = c.appendFile(rest[0], []byte(strings.Join(rest[1:], " ")), "")
	case "lock":
		if len(rest) != 1 {
			err = fmt.Errorf("usage: lock NAME")
			break
		}
		err = c.lockFile(rest[0])
	case "unlock":
		if len(rest) != 1 {
			err = fmt.Errorf("usage: unlock NAME")
			break
		}
		err = c.unlockFile(rest[0])
	case "remove":
		if len(rest) != 1 {
			err = fmt.Errorf("usage: remove NAME")
			break
		}
		err = c.removeFile(rest[0])
	default:
		err = fmt.Errorf("unknown command %q, type 'help'", verb)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
}
