// Package cache provee el almacenamiento efímero del servicio: estados OAuth
// consumidos, sesiones y contadores.
//
// Soporta:
//   - Memory (in-process, go-cache, para desarrollo/testing y single-node)
//   - Redis (distribuido, para producción con varias réplicas)
package cache

import (
	"context"
	"errors"
	"time"
)

// Client define las operaciones de cache.
type Client interface {
	// Get obtiene un valor. Retorna ErrNotFound si no existe o expiró.
	Get(ctx context.Context, key string) (string, error)

	// Set guarda un valor con TTL opcional.
	// Si ttl es 0, no expira.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// SetNX guarda el valor solo si la key no existe, de forma atómica.
	// Retorna true si la key fue creada por esta llamada.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// Delete elimina una key. No falla si la key no existe.
	Delete(ctx context.Context, key string) error

	// Exists verifica si una key existe.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error
}

// ErrNotFound indica que la key no existe.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound verifica si el error es porque la key no existe.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func prefixed(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}
