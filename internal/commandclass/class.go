// Package commandclass holds the Z-Wave command class table.
package commandclass

import "strings"

// Well-known command class IDs.
const (
	NoOperation              uint8 = 0x00
	Basic                    uint8 = 0x20
	ControllerReplication    uint8 = 0x21
	ApplicationStatus        uint8 = 0x22
	SwitchBinary             uint8 = 0x25
	SwitchMultilevel         uint8 = 0x26
	SwitchAll                uint8 = 0x27
	SwitchToggleBinary       uint8 = 0x28
	SwitchToggleMultilevel   uint8 = 0x29
	SceneActivation          uint8 = 0x2B
	SceneActuatorConf        uint8 = 0x2C
	SceneControllerConf      uint8 = 0x2D
	SensorBinary             uint8 = 0x30
	SensorMultilevel         uint8 = 0x31
	Meter                    uint8 = 0x32
	Color                    uint8 = 0x33
	MeterPulse               uint8 = 0x35
	ThermostatMode           uint8 = 0x40
	ThermostatOperatingState uint8 = 0x42
	ThermostatSetpoint       uint8 = 0x43
	ThermostatFanMode        uint8 = 0x44
	ThermostatFanState       uint8 = 0x45
	ClimateControlSchedule   uint8 = 0x46
	DoorLockLogging          uint8 = 0x4C
	BasicWindowCovering      uint8 = 0x50
	CRC16Encap               uint8 = 0x56
	AssociationGroupInfo     uint8 = 0x59
	DeviceResetLocally       uint8 = 0x5A
	CentralScene             uint8 = 0x5B
	ZWavePlusInfo            uint8 = 0x5E
	MultiInstance            uint8 = 0x60
	DoorLock                 uint8 = 0x62
	UserCode                 uint8 = 0x63
	BarrierOperator          uint8 = 0x66
	Configuration            uint8 = 0x70
	Alarm                    uint8 = 0x71
	ManufacturerSpecific     uint8 = 0x72
	Powerlevel               uint8 = 0x73
	Protection               uint8 = 0x75
	Lock                     uint8 = 0x76
	NodeNaming               uint8 = 0x77
	FirmwareUpdateMD         uint8 = 0x7A
	Battery                  uint8 = 0x80
	Clock                    uint8 = 0x81
	Hail                     uint8 = 0x82
	WakeUp                   uint8 = 0x84
	Association              uint8 = 0x85
	Version                  uint8 = 0x86
	Indicator                uint8 = 0x87
	Proprietary              uint8 = 0x88
	Language                 uint8 = 0x89
	TimeParameters           uint8 = 0x8B
	MultiInstanceAssociation uint8 = 0x8E
	MultiCmd                 uint8 = 0x8F
	EnergyProduction         uint8 = 0x90
	ManufacturerProprietary  uint8 = 0x91
	Security                 uint8 = 0x98
	AssociationCommandConf   uint8 = 0x9B
	SensorAlarm              uint8 = 0x9C
	Mark                     uint8 = 0xEF
)

// Class describes one command class.
type Class struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

// Short returns the name without the COMMAND_CLASS_ prefix, lower-cased
// ("switch_binary").
func (c Class) Short() string {
	return strings.ToLower(strings.TrimPrefix(c.Name, "COMMAND_CLASS_"))
}

// Standard is the command class table shipped with the native manager.
var Standard = []Class{
	{NoOperation, "COMMAND_CLASS_NO_OPERATION"},
	{Basic, "COMMAND_CLASS_BASIC"},
	{ControllerReplication, "COMMAND_CLASS_CONTROLLER_REPLICATION"},
	{ApplicationStatus, "COMMAND_CLASS_APPLICATION_STATUS"},
	{0x23, "COMMAND_CLASS_ZIP_SERVICES"},
	{0x24, "COMMAND_CLASS_ZIP_SERVER"},
	{SwitchBinary, "COMMAND_CLASS_SWITCH_BINARY"},
	{SwitchMultilevel, "COMMAND_CLASS_SWITCH_MULTILEVEL"},
	{SwitchAll, "COMMAND_CLASS_SWITCH_ALL"},
	{SwitchToggleBinary, "COMMAND_CLASS_SWITCH_TOGGLE_BINARY"},
	{SwitchToggleMultilevel, "COMMAND_CLASS_SWITCH_TOGGLE_MULTILEVEL"},
	{SceneActivation, "COMMAND_CLASS_SCENE_ACTIVATION"},
	{SceneActuatorConf, "COMMAND_CLASS_SCENE_ACTUATOR_CONF"},
	{SceneControllerConf, "COMMAND_CLASS_SCENE_CONTROLLER_CONF"},
	{SensorBinary, "COMMAND_CLASS_SENSOR_BINARY"},
	{SensorMultilevel, "COMMAND_CLASS_SENSOR_MULTILEVEL"},
	{Meter, "COMMAND_CLASS_METER"},
	{Color, "COMMAND_CLASS_COLOR"},
	{MeterPulse, "COMMAND_CLASS_METER_PULSE"},
	{ThermostatMode, "COMMAND_CLASS_THERMOSTAT_MODE"},
	{ThermostatOperatingState, "COMMAND_CLASS_THERMOSTAT_OPERATING_STATE"},
	{ThermostatSetpoint, "COMMAND_CLASS_THERMOSTAT_SETPOINT"},
	{ThermostatFanMode, "COMMAND_CLASS_THERMOSTAT_FAN_MODE"},
	{ThermostatFanState, "COMMAND_CLASS_THERMOSTAT_FAN_STATE"},
	{ClimateControlSchedule, "COMMAND_CLASS_CLIMATE_CONTROL_SCHEDULE"},
	{DoorLockLogging, "COMMAND_CLASS_DOOR_LOCK_LOGGING"},
	{BasicWindowCovering, "COMMAND_CLASS_BASIC_WINDOW_COVERING"},
	{CRC16Encap, "COMMAND_CLASS_CRC_16_ENCAP"},
	{AssociationGroupInfo, "COMMAND_CLASS_ASSOCIATION_GRP_INFO"},
	{DeviceResetLocally, "COMMAND_CLASS_DEVICE_RESET_LOCALLY"},
	{CentralScene, "COMMAND_CLASS_CENTRAL_SCENE"},
	{ZWavePlusInfo, "COMMAND_CLASS_ZWAVE_PLUS_INFO"},
	{MultiInstance, "COMMAND_CLASS_MULTI_INSTANCE"},
	{DoorLock, "COMMAND_CLASS_DOOR_LOCK"},
	{UserCode, "COMMAND_CLASS_USER_CODE"},
	{BarrierOperator, "COMMAND_CLASS_BARRIER_OPERATOR"},
	{Configuration, "COMMAND_CLASS_CONFIGURATION"},
	{Alarm, "COMMAND_CLASS_ALARM"},
	{ManufacturerSpecific, "COMMAND_CLASS_MANUFACTURER_SPECIFIC"},
	{Powerlevel, "COMMAND_CLASS_POWERLEVEL"},
	{Protection, "COMMAND_CLASS_PROTECTION"},
	{Lock, "COMMAND_CLASS_LOCK"},
	{NodeNaming, "COMMAND_CLASS_NODE_NAMING"},
	{FirmwareUpdateMD, "COMMAND_CLASS_FIRMWARE_UPDATE_MD"},
	{Battery, "COMMAND_CLASS_BATTERY"},
	{Clock, "COMMAND_CLASS_CLOCK"},
	{Hail, "COMMAND_CLASS_HAIL"},
	{WakeUp, "COMMAND_CLASS_WAKE_UP"},
	{Association, "COMMAND_CLASS_ASSOCIATION"},
	{Version, "COMMAND_CLASS_VERSION"},
	{Indicator, "COMMAND_CLASS_INDICATOR"},
	{Proprietary, "COMMAND_CLASS_PROPRIETARY"},
	{Language, "COMMAND_CLASS_LANGUAGE"},
	{TimeParameters, "COMMAND_CLASS_TIME_PARAMETERS"},
	{MultiInstanceAssociation, "COMMAND_CLASS_MULTI_INSTANCE_ASSOCIATION"},
	{MultiCmd, "COMMAND_CLASS_MULTI_CMD"},
	{EnergyProduction, "COMMAND_CLASS_ENERGY_PRODUCTION"},
	{ManufacturerProprietary, "COMMAND_CLASS_MANUFACTURER_PROPRIETARY"},
	{Security, "COMMAND_CLASS_SECURITY"},
	{AssociationCommandConf, "COMMAND_CLASS_ASSOCIATION_COMMAND_CONFIGURATION"},
	{SensorAlarm, "COMMAND_CLASS_SENSOR_ALARM"},
	{Mark, "COMMAND_CLASS_MARK"},
}
