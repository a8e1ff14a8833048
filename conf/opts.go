package conf

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

type Opts struct {
	DataDir    string `long:"datadir" description:"specified program data dir"`
	ConfigFile string `long:"conf" description:"path of the yaml configuration file"`
	LogLevel   string `long:"loglevel" description:"log level, one of emergency, alert, critical, error, warn, notice, info, debug"`

	RegTest     bool `long:"regtest" description:"initiate regtest"`
	NoPersist   bool `long:"nopersistmempool" description:"do not load or dump the mempool on start and shutdown"`
	PrintConfig bool `long:"printconfig" description:"print the effective configuration and exit"`
}

func InitArgs(args []string) (*Opts, error) {
	opts := new(Opts)
	_, err := flags.ParseArgs(opts, args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	return opts, nil
}

func (opts *Opts) String() string {
	return fmt.Sprintf("datadir:%s conf:%s regtest:%v", opts.DataDir, opts.ConfigFile, opts.RegTest)
}
