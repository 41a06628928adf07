// Package all registra todos los adapters del account store.
package all

import (
	_ "github.com/dropDatabas3/yandexid/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/yandexid/internal/store/adapters/pg"
	_ "github.com/dropDatabas3/yandexid/internal/store/adapters/sqlite"
)
