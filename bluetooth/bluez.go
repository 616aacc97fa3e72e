package bluetooth

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	bluezService    = "org.bluez"
	adapterIface    = "org.bluez.Adapter1"
	deviceIface     = "org.bluez.Device1"
	objectManager   = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
	propertiesIface = "org.freedesktop.DBus.Properties"
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// BlueZ is an Adapter backed by the BlueZ daemon on the system bus. It uses
// the first adapter BlueZ reports.
type BlueZ struct {
	conn *dbus.Conn
}

var _ Adapter = (*BlueZ)(nil)

// NewBlueZ connects to the system bus.
func NewBlueZ() (*BlueZ, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("system bus: %w", err)
	}
	return &BlueZ{conn: conn}, nil
}

// Close closes the bus connection.
func (b *BlueZ) Close() error {
	return b.conn.Close()
}

func (b *BlueZ) managed(ctx context.Context) (managedObjects, error) {
	var objs managedObjects
	om := b.conn.Object(bluezService, dbus.ObjectPath("/"))
	if err := om.CallWithContext(ctx, objectManager, 0).Store(&objs); err != nil {
		return nil, err
	}
	return objs, nil
}

func (b *BlueZ) adapter(ctx context.Context) (dbus.BusObject, dbus.ObjectPath, error) {
	objs, err := b.managed(ctx)
	if err != nil {
		return nil, "", err
	}
	var paths []string
	for path, ifs := range objs {
		if _, ok := ifs[adapterIface]; ok {
			paths = append(paths, string(path))
		}
	}
	if len(paths) == 0 {
		return nil, "", ErrNoAdapter
	}
	sort.Strings(paths)
	path := dbus.ObjectPath(paths[0])
	return b.conn.Object(bluezService, path), path, nil
}

func (b *BlueZ) Powered(ctx context.Context) (bool, error) {
	obj, _, err := b.adapter(ctx)
	if err != nil {
		return false, err
	}
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, propertiesIface+".Get", 0, adapterIface, "Powered").Store(&v); err != nil {
		return false, err
	}
	on, _ := v.Value().(bool)
	return on, nil
}

func (b *BlueZ) SetPowered(ctx context.Context, on bool) error {
	obj, _, err := b.adapter(ctx)
	if err != nil {
		return err
	}
	return obj.CallWithContext(ctx, propertiesIface+".Set", 0, adapterIface, "Powered", dbus.MakeVariant(on)).Err
}

func (b *BlueZ) StartDiscovery(ctx context.Context) error {
	obj, _, err := b.adapter(ctx)
	if err != nil {
		return err
	}
	return obj.CallWithContext(ctx, adapterIface+".StartDiscovery", 0).Err
}

func (b *BlueZ) StopDiscovery(ctx context.Context) error {
	obj, _, err := b.adapter(ctx)
	if err != nil {
		return err
	}
	return obj.CallWithContext(ctx, adapterIface+".StopDiscovery", 0).Err
}

func (b *BlueZ) Devices(ctx context.Context) ([]DeviceInfo, error) {
	_, adapterPath, err := b.adapter(ctx)
	if err != nil {
		return nil, err
	}
	objs, err := b.managed(ctx)
	if err != nil {
		return nil, err
	}

	var paths []string
	for path, ifs := range objs {
		if _, ok := ifs[deviceIface]; ok && strings.HasPrefix(string(path), string(adapterPath)+"/") {
			paths = append(paths, string(path))
		}
	}
	sort.Strings(paths)

	devices := make([]DeviceInfo, 0, len(paths))
	for _, p := range paths {
		devices = append(devices, deviceInfo(objs[dbus.ObjectPath(p)][deviceIface]))
	}
	return devices, nil
}

func deviceInfo(props map[string]dbus.Variant) DeviceInfo {
	str := func(k string) string {
		if v, ok := props[k]; ok {
			s, _ := v.Value().(string)
			return s
		}
		return ""
	}
	flag := func(k string) bool {
		if v, ok := props[k]; ok {
			b, _ := v.Value().(bool)
			return b
		}
		return false
	}
	return DeviceInfo{
		Address:   str("Address"),
		Name:      str("Name"),
		Alias:     str("Alias"),
		Connected: flag("Connected"),
		Paired:    flag("Paired"),
		Icon:      str("Icon"),
	}
}

func (b *BlueZ) ConnectDevice(ctx context.Context, address string) error {
	_, adapterPath, err := b.adapter(ctx)
	if err != nil {
		return err
	}
	path := dbus.ObjectPath(string(adapterPath) + "/dev_" + strings.ReplaceAll(strings.ToUpper(address), ":", "_"))
	return b.conn.Object(bluezService, path).CallWithContext(ctx, deviceIface+".Connect", 0).Err
}
