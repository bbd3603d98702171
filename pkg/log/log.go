/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	LogPrefix     = "[go-probe] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel Level = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelNames = map[string]Level{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

// ErrWrongLevel returned when a level name is not one of levelNames
type ErrWrongLevel struct {
	Name string
}

func (e ErrWrongLevel) Error() string {
	return fmt.Sprintf("Wrong log level %q. %s", e.Name, HelpLevels)
}

type Logger struct {
	mu    sync.RWMutex
	level Level
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, LogPrefix, log.LstdFlags),
}

// ParseLevel converts a level name to Level
func ParseLevel(name string) (Level, error) {
	level, ok := levelNames[name]
	if !ok {
		return ErrorLevel, ErrWrongLevel{Name: name}
	}
	return level, nil
}

func SetLevel(name string) error {
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	logger.mu.Lock()
	logger.level = level
	logger.mu.Unlock()
	return nil
}

func GetLevel() Level {
	logger.mu.RLock()
	defer logger.mu.RUnlock()
	return logger.level
}

// Init redirects the output and sets the level. Unknown level names fall back to info.
func Init(out io.Writer, name string) {
	logger.SetOutput(out)
	if err := SetLevel(name); err != nil {
		_ = SetLevel("info")
		Warning("%s", err)
	}
}

func output(level Level, prefix, format string, v ...interface{}) {
	if GetLevel() >= level {
		logger.Println(fmt.Sprintf(prefix+format, v...))
	}
}

func Error(format string, v ...interface{}) {
	output(ErrorLevel, ErrorPrefix, format, v...)
}

func Warning(format string, v ...interface{}) {
	output(WarningLevel, WarningPrefix, format, v...)
}

func Info(format string, v ...interface{}) {
	output(InfoLevel, InfoPrefix, format, v...)
}

func Debug(format string, v ...interface{}) {
	output(DebugLevel, DebugPrefix, format, v...)
}

type levelWriter struct {
	level  Level
	prefix string
}

func (w levelWriter) Write(p []byte) (int, error) {
	output(w.level, w.prefix, "%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Writer returns an io.Writer logging each write as one line at level.
func Writer(level Level) io.Writer {
	prefixes := map[Level]string{
		ErrorLevel:   ErrorPrefix,
		WarningLevel: WarningPrefix,
		InfoLevel:    InfoPrefix,
		DebugLevel:   DebugPrefix,
	}
	return levelWriter{level: level, prefix: prefixes[level]}
}

// RecoveryLogger reports recovered panics at error level.
type RecoveryLogger struct{}

func (RecoveryLogger) Println(v ...interface{}) {
	Error("%s", fmt.Sprint(v...))
}
