package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	logger "github.com/sirupsen/logrus"
)

// InitLogger configures the process-wide logrus logger from Config.Logging
// and returns the configured logger.
func InitLogger() logger.FieldLogger {
	log := logger.StandardLogger()

	if Config.Logging.OutputStderr {
		log.SetOutput(os.Stderr)
	}
	if Config.Logging.OutputLevel != "" {
		level, err := logger.ParseLevel(Config.Logging.OutputLevel)
		if err != nil {
			log.Warnf("invalid logging.outputLevel %v: %v", Config.Logging.OutputLevel, err)
		} else {
			log.SetLevel(level)
		}
	}

	if Config.Logging.FilePath != "" {
		f, err := os.OpenFile(Config.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Errorf("error opening log file %v: %v", Config.Logging.FilePath, err)
		} else {
			fileLevel := log.GetLevel()
			if Config.Logging.FileLevel != "" {
				if level, err := logger.ParseLevel(Config.Logging.FileLevel); err == nil {
					fileLevel = level
				}
			}
			log.AddHook(&fileLogHook{writer: f, level: fileLevel, formatter: &logger.TextFormatter{DisableColors: true}})
		}
	}

	return log
}

type fileLogHook struct {
	writer    *os.File
	level     logger.Level
	formatter logger.Formatter
}

func (h *fileLogHook) Levels() []logger.Level {
	levels := []logger.Level{}
	for _, level := range logger.AllLevels {
		if level <= h.level {
			levels = append(levels, level)
		}
	}
	return levels
}

func (h *fileLogHook) Fire(entry *logger.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logger.Entry {
	logFields := logger.NewEntry(logger.StandardLogger())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logger.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}
