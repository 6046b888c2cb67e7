package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// DeliveryAddress uniquely identifies an (account, device) pair. It keys live
// connections and correlates APN fallback tasks; it is derived per call and
// never persisted.
type DeliveryAddress struct {
	Number   string
	DeviceID uint64
}

func NewDeliveryAddress(number string, deviceID uint64) DeliveryAddress {
	return DeliveryAddress{Number: number, DeviceID: deviceID}
}

func (a DeliveryAddress) String() string {
	return fmt.Sprintf("%s:%d", a.Number, a.DeviceID)
}

// ParseDeliveryAddress parses the "number:deviceId" form produced by String.
func ParseDeliveryAddress(serialized string) (DeliveryAddress, error) {
	idx := strings.LastIndex(serialized, ":")
	if idx <= 0 || idx == len(serialized)-1 {
		return DeliveryAddress{}, fmt.Errorf("invalid delivery address: %q", serialized)
	}
	deviceID, err := strconv.ParseUint(serialized[idx+1:], 10, 64)
	if err != nil {
		return DeliveryAddress{}, fmt.Errorf("invalid device id in %q: %w", serialized, err)
	}
	return DeliveryAddress{Number: serialized[:idx], DeviceID: deviceID}, nil
}
