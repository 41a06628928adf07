// Package store provee el registry de adaptadores del account store.
//
// Cada adapter se registra en init() y se selecciona por nombre
// (storage.driver): "memory", "postgres", "sqlite".
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dropDatabas3/yandexid/internal/domain/repository"
)

// Adapter representa un adaptador de almacenamiento capaz de abrir conexiones.
type Adapter interface {
	// Name retorna el nombre del adapter (ej: "postgres", "sqlite", "memory").
	Name() string

	// Connect establece conexión con el almacenamiento.
	Connect(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error)
}

// AdapterConnection representa una conexión activa.
type AdapterConnection interface {
	// Name retorna el nombre del adapter.
	Name() string

	// Ping verifica la conexión.
	Ping(ctx context.Context) error

	// Close cierra la conexión.
	Close() error

	Accounts() repository.AccountRepository
}

// MigratableConnection interfaz opcional para conexiones SQL.
type MigratableConnection interface {
	// MigrationExecutor retorna el ejecutor y el set de migraciones del driver.
	MigrationExecutor() (Executor, MigrationSource)
}

// AdapterConfig configuración para conectar a un almacenamiento.
type AdapterConfig struct {
	// Name del adapter: "postgres", "sqlite", "memory"
	Name string

	// DSN connection string (para DBs)
	DSN string

	// Pool settings (para DBs)
	MaxOpenConns int
	MaxIdleConns int
}

// ─── Registry Global ───

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// RegisterAdapter registra un adapter en el registry global.
// Llamar en init() de cada adapter.
func RegisterAdapter(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()

	name := a.Name()
	if _, exists := adapters[name]; exists {
		panic(fmt.Sprintf("adapter: %q already registered", name))
	}
	adapters[name] = a
}

// GetAdapter obtiene un adapter por nombre.
func GetAdapter(name string) (Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[name]
	return a, ok
}

// ListAdapters retorna los nombres de todos los adapters registrados, ordenados.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(adapters))
	for name := range adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenAdapter abre una conexión usando el adapter especificado en la config.
func OpenAdapter(ctx context.Context, cfg AdapterConfig) (AdapterConnection, error) {
	a, ok := GetAdapter(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("adapter: %q not registered (have %v)", cfg.Name, ListAdapters())
	}
	return a.Connect(ctx, cfg)
}

// Migrate aplica las migraciones pendientes si la conexión las soporta.
// Para adapters sin esquema (memory) retorna un resultado vacío.
func Migrate(ctx context.Context, conn AdapterConnection) (*MigrationResult, error) {
	mc, ok := conn.(MigratableConnection)
	if !ok {
		return &MigrationResult{}, nil
	}
	exec, src := mc.MigrationExecutor()
	return NewMigrator(src).Run(ctx, exec)
}
