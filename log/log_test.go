package log

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/astaxie/beego/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	level  = []string{"emergency", "Alert", "critical", "error", "warn", "info", "debug", "Notice"}
	module = []string{"mempool", "dsproof", "chain", "service", "persist"}
)

func TestGetLevel(t *testing.T) {
	for _, levelStr := range level {
		num := GetLevel(levelStr)
		assert.True(t, num >= 0 && num <= 7, "level %s -> %d", levelStr, num)
	}
	assert.Equal(t, logs.LevelDebug, GetLevel("default"))
	assert.Equal(t, logs.LevelWarning, GetLevel("WARN"))
}

func TestPrint(t *testing.T) {
	dir, err := ioutil.TempDir("", "logtest")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	fileName := filepath.Join(dir, "print.log")
	configuration, err := json.Marshal(logConfig{Filename: fileName, Level: logs.LevelDebug})
	require.NoError(t, err)
	require.NoError(t, Init(string(configuration)))
	SetModules(module)

	for _, moduleStr := range module {
		for _, levelStr := range level {
			Print(moduleStr, levelStr, "module[%s]: %s", moduleStr, levelStr)
		}
	}
	Print("rpc", "info", "should not appear")
	logs.GetBeeLogger().Flush()
	time.Sleep(10 * time.Millisecond)

	content, err := ioutil.ReadFile(fileName)
	require.NoError(t, err)
	str := string(content)
	assert.True(t, strings.Contains(str, fmt.Sprintf("module[%s]: %s", "dsproof", "warn")))
	assert.True(t, strings.Contains(str, errModuleNotFound))
	assert.False(t, strings.Contains(str, "should not appear"))
}

func TestInitLogger(t *testing.T) {
	dir, err := ioutil.TempDir("", "initLog")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	require.NoError(t, InitLogger(dir, "info", []string{"mempool"}))
	assert.True(t, isIncludeModule("mempool"))
	assert.False(t, isIncludeModule("dsproof"))
	_, err = os.Stat(filepath.Join(dir, "debug.log"))
	assert.NoError(t, err)
}

func TestInitReplacesLogger(t *testing.T) {
	first, err := ioutil.TempDir("", "initFirst")
	require.NoError(t, err)
	defer os.RemoveAll(first)
	second, err := ioutil.TempDir("", "initSecond")
	require.NoError(t, err)
	defer os.RemoveAll(second)

	require.NoError(t, InitLogger(first, "debug", module))
	require.NoError(t, InitLogger(second, "debug", module))
	Print("chain", "info", "written to the second file")
	logs.GetBeeLogger().Flush()

	content, err := ioutil.ReadFile(filepath.Join(second, "debug.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "written to the second file")

	assert.Error(t, Init("{not json"))
}
