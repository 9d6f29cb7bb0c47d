package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docopt/docopt-go"

	"tableslate/server/internal/app"
	servernet "tableslate/server/internal/net"
)

const version = "0.1.0"

func main() {
	usage := `TableSlate server.

Hosts a shared scene over HTTP and websockets and advertises the table on
the local network.

Usage:
    server [--addr=<addr>] [--client=<dir>] [--secret=<secret>] [--name=<name>] [--no-mdns]
    server browse
    server -h | --help
    server --version

Options:
    -h --help            Show this screen.
    --version            Show version.
    --addr=<addr>        Listen address [default: :8080].
    --client=<dir>       Directory of static client files to serve.
    --secret=<secret>    Token signing secret; empty disables auth.
    --name=<name>        Table name advertised over mDNS [default: TableSlate].
    --no-mdns            Do not advertise the table on the local network.

The browse command lists tables advertised on the local network and exits.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if browse, _ := opts.Bool("browse"); browse {
		found := 0
		err := servernet.Browse(func(name, addr string) {
			found++
			if name == "" {
				name = "(unnamed)"
			}
			fmt.Printf("%s\t%s\n", name, addr)
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "browse: %v\n", err)
			os.Exit(1)
		}
		if found == 0 {
			fmt.Println("no tables found")
		}
		return
	}

	addr, _ := opts.String("--addr")
	clientDir, _ := opts.String("--client")
	secret, _ := opts.String("--secret")
	name, _ := opts.String("--name")
	noMDNS, _ := opts.Bool("--no-mdns")

	if secret == "" {
		secret = os.Getenv("TABLESLATE_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.Config{
		Addr:      addr,
		ClientDir: clientDir,
		Secret:    secret,
		TableName: name,
		MDNS:      !noMDNS,
	}
	if err := app.Run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
