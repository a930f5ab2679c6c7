// Command hashctl is an interactive client for the wire protocol (§11.4),
// adapted directly from repl/repl.go's Run/getInput loop: a bufio.Scanner
// prompt over stdin, but each line is sent to a server connection instead
// of a local SQL engine.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/spf13/pflag"
)

func main() {
	addr := pflag.String("addr", "127.0.0.1:4444", "server address")
	pflag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer conn.Close()

	r := &repl{conn: conn}
	r.Run()
}

type repl struct {
	conn net.Conn
}

func (r *repl) Run() {
	fmt.Println("Welcome to hashctl. Type .exit to exit")
	in := bufio.NewScanner(os.Stdin)
	out := bufio.NewReader(r.conn)
	for r.getInput(in) {
		input := in.Text()
		if len(input) == 0 {
			continue
		}
		if input == ".exit" {
			os.Exit(0)
		}
		if _, err := fmt.Fprintln(r.conn, input); err != nil {
			fmt.Printf("Err: %s\n", err.Error())
			continue
		}
		resp, err := out.ReadString('\n')
		if err != nil {
			fmt.Printf("Err: %s\n", err.Error())
			return
		}
		fmt.Print(resp)
	}
}

func (*repl) getInput(reader *bufio.Scanner) bool {
	fmt.Printf("hashctl > ")
	return reader.Scan()
}
