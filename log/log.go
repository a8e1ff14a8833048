package log

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/astaxie/beego/logs"
	"github.com/pkg/errors"
)

const errModuleNotFound = "specified module not found"

var (
	moduleLock sync.RWMutex
	mapModule  = make(map[string]struct{})
)

type logConfig struct {
	Filename string `json:"filename"`
	Level    int    `json:"level"`
	Rotate   bool   `json:"rotate,omitempty"`
	Daily    bool   `json:"daily,omitempty"`
	MaxDays  int64  `json:"maxdays,omitempty"`
}

// Init replaces the installed adapters with the beego file adapter, using
// a raw json configuration.
func Init(configuration string) error {
	logs.Reset()
	logs.EnableFuncCallDepth(true)
	logs.SetLogFuncCallDepth(4)
	return errors.Wrap(logs.SetLogger(logs.AdapterFile, configuration), "set file logger")
}

// InitLogger writes debug.log into dir and only lets the given modules through Print.
func InitLogger(dir, level string, modules []string) error {
	config, err := json.Marshal(logConfig{
		Filename: filepath.Join(dir, "debug.log"),
		Level:    GetLevel(level),
		Rotate:   true,
		Daily:    true,
		MaxDays:  7,
	})
	if err != nil {
		return err
	}
	if err := Init(string(config)); err != nil {
		return err
	}
	SetModules(modules)
	return nil
}

func SetModules(modules []string) {
	moduleLock.Lock()
	defer moduleLock.Unlock()
	mapModule = make(map[string]struct{}, len(modules))
	for _, m := range modules {
		mapModule[strings.TrimSpace(m)] = struct{}{}
	}
}

func isIncludeModule(module string) bool {
	moduleLock.RLock()
	defer moduleLock.RUnlock()
	_, ok := mapModule[module]
	return ok
}

// Print logs format at the named level when module is enabled.
func Print(module string, level string, format string, reason ...interface{}) {
	if !isIncludeModule(module) {
		logs.Error(fmt.Sprintf("%s: %s", errModuleNotFound, module))
		return
	}
	format = "[" + module + "] " + format
	switch strings.ToLower(level) {
	case "emergency":
		logs.Emergency(format, reason...)
	case "alert":
		logs.Alert(format, reason...)
	case "critical":
		logs.Critical(format, reason...)
	case "error":
		logs.Error(format, reason...)
	case "warn", "warning":
		logs.Warn(format, reason...)
	case "notice":
		logs.Notice(format, reason...)
	case "info", "informational":
		logs.Info(format, reason...)
	case "debug":
		logs.Debug(format, reason...)
	case "trace":
		logs.Trace(format, reason...)
	default:
		logs.Info(format, reason...)
	}
}

func Emergency(f interface{}, v ...interface{}) { logs.Emergency(f, v...) }

func Alert(f interface{}, v ...interface{}) { logs.Alert(f, v...) }

func Critical(f interface{}, v ...interface{}) { logs.Critical(f, v...) }

func Error(f interface{}, v ...interface{}) { logs.Error(f, v...) }

func Warn(f interface{}, v ...interface{}) { logs.Warn(f, v...) }

func Notice(f interface{}, v ...interface{}) { logs.Notice(f, v...) }

func Info(f interface{}, v ...interface{}) { logs.Info(f, v...) }

func Debug(f interface{}, v ...interface{}) { logs.Debug(f, v...) }

func Trace(f interface{}, v ...interface{}) { logs.Trace(f, v...) }
