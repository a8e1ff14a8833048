// Command thehubd runs the mempool and double spend proof node on top of a
// leveldb coin database.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/floweethehub/thehub-sub000/conf"
	"github.com/floweethehub/thehub-sub000/log"
	"github.com/floweethehub/thehub-sub000/model/utxo"
	"github.com/floweethehub/thehub-sub000/service"
)

func main() {
	if err := hubMain(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// hubMain is the real main function, deferred functions do not run when
// os.Exit is called.
func hubMain(args []string) error {
	opts, err := conf.InitArgs(args)
	if err != nil {
		return err
	}
	cfg, err := conf.LoadConfig(opts)
	if err != nil {
		return err
	}
	if opts.PrintConfig {
		spew.Dump(cfg)
		return nil
	}
	conf.Cfg = cfg

	dataPath, err := cfg.GetDataPath()
	if err != nil {
		return err
	}
	if err := log.InitLogger(dataPath, cfg.Log.Level, cfg.Log.Module); err != nil {
		return err
	}

	coinsDB, err := utxo.NewCoinsDB(dataPath, cfg.Persist.CoinsDBCache, false)
	if err != nil {
		return err
	}
	defer coinsDB.Close()
	stats, err := coinsDB.Stats()
	if err != nil {
		return err
	}
	log.Print("persist", "info", "coins db holds %d coins of %d transactions, %s in total, about %d bytes on disk",
		stats.Coins, stats.Transactions, stats.TotalAmount, stats.DiskSize)

	node := service.NewNode(service.Config{
		Conf:      cfg,
		Coins:     utxo.NewCoinsCache(coinsDB),
		BestBlock: coinsDB.GetBestBlock,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := node.Start(ctx); err != nil {
		return err
	}
	log.Info("thehubd started, datadir %s", dataPath)

	<-interruptListener()

	cancel()
	if err := node.Stop(); err != nil {
		log.Error("shutdown: %v", err)
		return err
	}
	log.Info("thehubd stopped")
	return nil
}
