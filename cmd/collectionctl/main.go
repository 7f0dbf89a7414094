package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/doccollection/internal/buildinfo"
	"github.com/dmitrijs2005/doccollection/internal/cli"
	"github.com/dmitrijs2005/doccollection/internal/config"
	"github.com/dmitrijs2005/doccollection/internal/flagx"

	_ "github.com/dmitrijs2005/doccollection/store/boltstore"
	_ "github.com/dmitrijs2005/doccollection/store/firestorestore"
	_ "github.com/dmitrijs2005/doccollection/store/memstore"
	_ "github.com/dmitrijs2005/doccollection/store/mongostore"
	_ "github.com/dmitrijs2005/doccollection/store/sqlstore"
)

func initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Without positional arguments collectionctl starts the REPL; otherwise
// they are run as one command, e.g. "collectionctl -d sqlite -n data.db get ann".
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	initSignalHandler(cancel)

	cfg := config.LoadConfig()

	_, rest := flagx.Partition(os.Args[1:], append(slices.Clone(config.Flags), flagx.ConfigFileFlags...))

	s, err := cli.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer s.Close()

	if len(rest) > 0 {
		if err := s.Exec(ctx, strings.Join(rest, " ")); err != nil {
			log.Printf("%v", err)
			s.Close()
			os.Exit(1)
		}
		return
	}

	buildinfo.PrintBuildData(os.Stdout)
	s.Run(ctx)
}
