package logger

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

var namedLevels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

// StringToLevel parses a level name or a positive logr verbosity.
// Verbosity N maps to zap level -N, so "1" is the same as "debug" and higher numbers are more verbose.
func StringToLevel(value string, defaultLevel zapcore.Level) (zapcore.Level, error) {
	if level, isNamed := namedLevels[strings.ToLower(strings.TrimSpace(value))]; isNamed {
		return level, nil
	}

	verbosity, err := strconv.ParseUint(strings.TrimSpace(value), 10, 7)
	if err != nil || verbosity == 0 {
		return defaultLevel, fmt.Errorf("invalid log level \"%s\"", value)
	}

	return zapcore.Level(-int8(verbosity)), nil
}

// LevelFlagValue is a pflag.Value that applies the parsed level as soon as the flag is set.
type LevelFlagValue struct {
	onLevelAvailable func(zapcore.Level)
	value            string
}

func NewLevelFlagValue(onLevelAvailable func(zapcore.Level)) LevelFlagValue {
	return LevelFlagValue{
		onLevelAvailable: onLevelAvailable,
	}
}

func (lfv *LevelFlagValue) Set(flagValue string) error {
	level, err := StringToLevel(flagValue, zapcore.InfoLevel)
	if err != nil {
		return err
	}

	lfv.onLevelAvailable(level)
	lfv.value = flagValue
	return nil
}

func (lfv *LevelFlagValue) String() string {
	return lfv.value
}

func (*LevelFlagValue) Type() string {
	return "level"
}
