package session

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/authmodel"
	"github.com/jrsteele09/go-auth-session/storage"
)

// DeviceID returns the id stored in the area, creating it on first use.
func (m *Manager) DeviceID() string {
	if id, ok, err := m.area.Get(storage.KeyDeviceID); err == nil && ok && id != "" {
		return id
	} else if err != nil {
		log.Warn().Err(err).Msg("failed to read device id")
	}

	id := newDeviceID(m.clock.Now().UnixMilli())
	if err := m.area.Set(storage.KeyDeviceID, id); err != nil {
		log.Warn().Err(err).Msg("failed to store device id")
	}
	return id
}

func newDeviceID(unixMilli int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("web_%d_%s", unixMilli, suffix)
}

// DefaultDeviceInfo describes this process as a web client.
func DefaultDeviceInfo() authmodel.DeviceInfo {
	return authmodel.DeviceInfo{
		DeviceType:      string(authmodel.DeviceTypeWeb),
		DeviceName:      "Web Browser",
		Platform:        "web",
		PlatformVersion: runtime.GOOS + "/" + runtime.GOARCH,
		AppVersion:      "1.0.0",
	}
}
