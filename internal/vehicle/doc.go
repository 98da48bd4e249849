// Package vehicle implements the simulated EV telemetry engine.
//
// A Controller owns a single State and a Schedule. Starting the vehicle
// arms the schedule, and every tick runs the Generator's bounded random
// walk over speed, power and battery level, after which the gear is
// re-derived from the new speed. Stopping cancels the schedule and zeroes
// speed and power while keeping the battery level.
//
// Renderers never touch the State directly: they read copies through
// Controller.State, receive them on a Subscribe channel, or implement
// Observer. The display formulas in display.go are pure and can be
// applied to any State copy.
package vehicle
