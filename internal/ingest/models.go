package ingest

import (
	"strings"
	"time"

	"github.com/mssola/useragent"

	id "beacon/pkg/domain"
)

// SafetySignal is a child's silent help signal. Created only through the
// ingest service; mutated only through valid status transitions; deleted only
// by the retention gate.
type SafetySignal struct {
	ID            id.SignalID
	ChildID       id.ChildID
	TriggerMethod id.TriggerMethod
	Platform      id.Platform
	Status        id.SignalStatus
	TriggeredAt   time.Time
	DeliveredAt   *time.Time
	DeviceID      id.DeviceID
	IsOffline     bool
}

// OfflineQueueEntry wraps a signal created while the device had no
// connectivity. It exists only until the signal is re-delivered.
type OfflineQueueEntry struct {
	SignalID    id.SignalID
	ChildID     id.ChildID
	RetryCount  int
	LastRetryAt *time.Time
	EnqueuedAt  time.Time
}

// DetectPlatform derives the originating platform from the device user agent.
// Unparseable agents map to unknown rather than failing ingest: a signal is
// never rejected because of a weird device string.
func DetectPlatform(userAgentString string) id.Platform {
	if userAgentString == "" {
		return id.PlatformUnknown
	}

	ua := useragent.New(userAgentString)
	osInfo := ua.OSInfo()

	switch {
	case strings.Contains(osInfo.Name, "Android"):
		return id.PlatformAndroid
	case strings.Contains(osInfo.Name, "iPhone"), strings.Contains(osInfo.Name, "iOS"),
		strings.Contains(osInfo.Name, "CPU iPhone"), strings.Contains(ua.Platform(), "iPhone"),
		strings.Contains(ua.Platform(), "iPad"):
		return id.PlatformIOS
	case ua.Bot():
		return id.PlatformUnknown
	default:
		return id.PlatformWeb
	}
}
