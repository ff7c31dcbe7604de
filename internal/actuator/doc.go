// Package actuator plays the arrival alarm.
//
// An Actuator repeats the effect selected by the alarm mode (sound, a
// vibration burst, or both) on a fixed cadence until it is stopped. Audio is
// an exclusive resource held from Start to Stop; when the configured player
// cannot be acquired the actuator falls back to the default alert.
package actuator
