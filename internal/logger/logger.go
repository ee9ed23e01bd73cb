package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap.Logger with request and component scoping helpers
type Logger struct {
	*zap.Logger
}

// Config contains logger configuration
type Config struct {
	Level  string
	Format string // json or console
	File   *FileConfig
}

// FileConfig contains rotating file output configuration
type FileConfig struct {
	Enabled  bool
	Path     string
	MaxSize  int // megabytes
	MaxAge   int // days
	Compress bool
}

// New creates a new logger instance. Console output follows the
// configured format; file output is always JSON and rotates.
func New(config Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	cores := []zapcore.Core{
		zapcore.NewCore(newEncoder(config.Format), zapcore.AddSync(os.Stdout), level),
	}

	if config.File != nil && config.File.Enabled {
		rotator := &lumberjack.Logger{
			Filename: config.File.Path,
			MaxSize:  config.File.MaxSize,
			MaxAge:   config.File.MaxAge,
			Compress: config.File.Compress,
		}
		cores = append(cores, zapcore.NewCore(newEncoder("json"), zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{Logger: logger}, nil
}

func newEncoder(format string) zapcore.Encoder {
	if format == "console" {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewConsoleEncoder(encoderConfig)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// WithRequestID adds a request ID to the logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("request_id", requestID))}
}

// WithComponent adds a component name to the logger context
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component))}
}
