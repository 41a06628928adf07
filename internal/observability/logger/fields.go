package logger

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ---- HTTP ----

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

// Duration records the elapsed time of a request or outbound call.
func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

// ---- Dominio ----

func AccountID(v string) zap.Field  { return zap.String("account_id", v) }
func ProviderID(v string) zap.Field { return zap.String("provider_user_id", v) }
func Username(v string) zap.Field   { return zap.String("username", v) }
func Stage(v string) zap.Field      { return zap.String("stage", v) }
func Reason(v string) zap.Field     { return zap.String("reason", v) }

// Email logs a masked address: "alice@example.com" -> "a***@example.com".
func Email(v string) zap.Field { return zap.String("email", MaskEmail(v)) }

// MaskEmail keeps the first rune of the local part and the full domain.
func MaskEmail(v string) string {
	v = strings.TrimSpace(v)
	at := strings.LastIndex(v, "@")
	if at <= 0 {
		if v == "" {
			return ""
		}
		return "***"
	}
	local := []rune(v[:at])
	return string(local[0]) + "***" + v[at:]
}

// ---- Sistema ----

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }

// ---- Genéricos ----

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field   { return zap.Any(key, v) }
