package settings

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/reelcraft/reelcraft-server/internal/models"
	"gorm.io/gorm"
)

var (
	registryMu sync.RWMutex
	registryDB *gorm.DB
)

// RegisterDB installs the database connection used for settings lookups.
func RegisterDB(conn *gorm.DB) {
	registryMu.Lock()
	registryDB = conn
	registryMu.Unlock()
}

// DBConfigValue loads a settings row by key. The second return value is
// false when no connection is registered or the key is absent.
func DBConfigValue(key string) (json.RawMessage, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, false
	}

	registryMu.RLock()
	conn := registryDB
	registryMu.RUnlock()
	if conn == nil {
		return nil, false
	}

	var row models.Setting
	errFind := conn.Where("key = ?", key).Take(&row).Error
	if errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, false
		}
		return nil, false
	}
	if len(row.Value) == 0 {
		return nil, false
	}
	return json.RawMessage(row.Value), true
}

// SetDBConfigValue upserts a settings row with a JSON-encoded value.
func SetDBConfigValue(conn *gorm.DB, key string, value any) error {
	key = strings.TrimSpace(key)
	if conn == nil || key == "" {
		return errors.New("settings: nil connection or empty key")
	}
	encoded, errMarshal := json.Marshal(value)
	if errMarshal != nil {
		return errMarshal
	}

	var row models.Setting
	errFind := conn.Where("key = ?", key).Take(&row).Error
	if errFind == nil {
		return conn.Model(&models.Setting{}).Where("key = ?", key).Update("value", encoded).Error
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return errFind
	}
	return conn.Create(&models.Setting{Key: key, Value: encoded}).Error
}
