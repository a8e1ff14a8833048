package conf

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	tagName = "default"

	// ConfigFileName is looked up inside the data directory when --conf is not given.
	ConfigFileName = "conf.yml"
	envPrefix      = "thehub"
)

var Cfg *Configuration

type Configuration struct {
	DataDir string `default:"thehub"`
	RegTest bool   `default:"false"`
	Log     struct {
		Level  string   `default:"info"` //description:"Define level of log,include trace, debug, info, warn, error"
		Module []string `default:"mempool,dsproof,chain,service,persist"`
	}
	Mempool struct {
		MaxPoolSize             int64   `default:"300"` // MB
		Expiry                  int64   `default:"336"` // hours
		LimitAncestorCount      int     `default:"25"`
		LimitAncestorSize       int64   `default:"101"` // KB
		LimitDescendantCount    int     `default:"25"`
		LimitDescendantSize     int64   `default:"101"` // KB
		CheckFrequency          float64 `default:"0"`
		IncrementalRelayFee     int64   `default:"1000"` // satoshi per KB
		MinRelayTxFee           int64   `default:"1000"`
		UpdateDescendantsBudget int     `default:"100"`
		Persist                 bool    `default:"true"`
	}
	DSProof struct {
		OrphanRetentionSeconds int64   `default:"90"`
		CleanupIntervalSeconds int64   `default:"60"`
		RejectFilterItems      uint32  `default:"120000"`
		RejectFilterFPRate     float64 `default:"0.000001"`
	}
	Persist struct {
		CoinsDBCache int `default:"64"` // MB
	}
}

// InitConfig parses the command line arguments, applies the defaults declared
// on Configuration and overlays the yaml configuration file when one exists.
func InitConfig(args []string) *Configuration {
	opts, err := InitArgs(args)
	if err != nil {
		panic(err)
	}
	cfg, err := LoadConfig(opts)
	if err != nil {
		panic(err)
	}
	return cfg
}

func LoadConfig(opts *Opts) (*Configuration, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yaml")

	setDefaults(v, reflect.TypeOf(Configuration{}), "")

	if opts.DataDir != "" {
		v.Set("datadir", opts.DataDir)
	}
	if opts.RegTest {
		v.Set("regtest", true)
	}
	if opts.LogLevel != "" {
		v.Set("log.level", opts.LogLevel)
	}

	file := opts.ConfigFile
	if file == "" {
		file = filepath.Join(v.GetString("datadir"), ConfigFileName)
	}
	if err := readConfigFile(v, file, opts.ConfigFile != ""); err != nil {
		return nil, err
	}

	config := &Configuration{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "unmarshal configuration")
	}
	// flags win over the file
	if opts.DataDir != "" {
		config.DataDir = opts.DataDir
	}
	if opts.LogLevel != "" {
		config.Log.Level = opts.LogLevel
	}
	if opts.NoPersist {
		config.Mempool.Persist = false
	}
	return config, nil
}

func readConfigFile(v *viper.Viper, file string, required bool) error {
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.Wrapf(err, "open config file %s", file)
	}
	defer f.Close()
	if err := v.ReadConfig(f); err != nil {
		return errors.Wrapf(err, "parse config file %s", file)
	}
	return nil
}

// setDefaults walks the struct tags, nested structs become dotted keys.
func setDefaults(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := strings.ToLower(field.Name)
		if prefix != "" {
			key = prefix + "." + key
		}
		if field.Type.Kind() == reflect.Struct {
			setDefaults(v, field.Type, key)
			continue
		}
		value, ok := field.Tag.Lookup(tagName)
		if !ok {
			continue
		}
		if field.Type.Kind() == reflect.Slice {
			v.SetDefault(key, strings.Split(value, ","))
			continue
		}
		v.SetDefault(key, value)
	}
}

// GetDataPath returns the data directory, created if missing.
func (c *Configuration) GetDataPath() (string, error) {
	dataPath := filepath.Clean(c.DataDir)
	if err := os.MkdirAll(dataPath, 0700); err != nil {
		return "", errors.Wrapf(err, "create data dir %s", dataPath)
	}
	return dataPath, nil
}
