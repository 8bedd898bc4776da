// Package examples provides reference modules built on package model.
//
// The modules mirror the signal processing blocks of a Red Pitaya FPGA
// design and show the typical shapes of a module:
//   - PID: a hardware module whose attributes live in FPGA registers
//   - ASG: a hardware module with a derived register (the frequency step
//     depends on the device clock correction)
//   - Sweep: a software module that borrows an ASG from the pool while it
//     runs and stores its result as a curve
//
// RedPitaya assembles a device with all of them.
package examples
