package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Logger is a zap SugaredLogger that scrubs key/value pairs before they are written.
// Secrets are replaced outright; manager identities are replaced by a salted hash so
// log lines stay correlatable without carrying the raw id.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
	scrub         scrubber
}

// New builds a logger for the given mode. "prod"/"production" emits JSON at info,
// "test" is silenced to warnings, anything else is the colored development config.
// LOG_REDACTION_ENABLED=false turns scrubbing off; LOG_HASH_SALT salts identity hashes.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "test":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: zl.Sugar(), scrub: scrubberFromEnv()}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.SugaredLogger.Debugw(msg, l.scrub.pairs(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.SugaredLogger.Infow(msg, l.scrub.pairs(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.SugaredLogger.Warnw(msg, l.scrub.pairs(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.SugaredLogger.Errorw(msg, l.scrub.pairs(kv)...) }
func (l *Logger) Fatal(msg string, kv ...interface{}) { l.SugaredLogger.Fatalw(msg, l.scrub.pairs(kv)...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(l.scrub.pairs(kv)...), scrub: l.scrub}
}

var (
	secretKeys   = []string{"token", "authorization", "password", "secret", "dsn"}
	identityKeys = []string{"applied_by", "manager_id", "created_by"}
)

type scrubber struct {
	enabled bool
	salt    string
}

func scrubberFromEnv() scrubber {
	s := scrubber{enabled: true, salt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT"))}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED"))) {
	case "0", "false", "no", "off":
		s.enabled = false
	}
	return s
}

func (s scrubber) pairs(kv []interface{}) []interface{} {
	if !s.enabled || len(kv) == 0 {
		return kv
	}
	out := make([]interface{}, len(kv))
	copy(out, kv)
	for i := 0; i+1 < len(out); i += 2 {
		out[i+1] = s.value(stringify(out[i]), out[i+1])
	}
	return out
}

func (s scrubber) value(key string, v interface{}) interface{} {
	key = strings.ToLower(strings.TrimSpace(key))
	switch {
	case key == "":
		return v
	case containsAny(key, secretKeys):
		return "[REDACTED]"
	case containsAny(key, identityKeys):
		return s.hash(v)
	}
	if m, ok := v.(map[string]interface{}); ok {
		scrubbed := make(map[string]interface{}, len(m))
		for k, inner := range m {
			scrubbed[k] = s.value(k, inner)
		}
		return scrubbed
	}
	return v
}

func (s scrubber) hash(v interface{}) string {
	raw := stringify(v)
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(s.salt + raw))
	return "hash:" + hex.EncodeToString(sum[:])[:12]
}

func containsAny(key string, parts []string) bool {
	for _, p := range parts {
		if strings.Contains(key, p) {
			return true
		}
	}
	return false
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
