package models

import "lamp/device"

// Driver model names.
const (
	ModelMotorBridge = "motor_bridge"
	ModelStripBridge = "strip_bridge"
	ModelLifx        = "lifx"
	ModelSim         = "sim"
)

// RegisterDriverTypes adds every driver model to the device factory.
func RegisterDriverTypes() {
	device.RegisterDriverType(ModelMotorBridge, newMotorBusFromConfig)
	device.RegisterDriverType(ModelStripBridge, newLedStripFromConfig)
	device.RegisterDriverType(ModelLifx, newLifxFromConfig)
	device.RegisterDriverType(ModelSim, newSimFromConfig)
}
