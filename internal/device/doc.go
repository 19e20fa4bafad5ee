// Package device holds the latest telemetry reported by the Zolertia Mote.
//
// Telemetry arrives as a JSON object on <ns>/zolertia/data. Decode turns the
// raw payload into a State and Store keeps the most recent one for the
// HTTP read path.
//
// # Key Types
//
//   - State: One decoded reading plus the time it was received
//   - Store: A last-write-wins slot shared by the router and the API
//
// # Usage
//
//	store := device.NewStore()
//
//	state, err := device.Decode(payload, time.Now())
//	if err != nil {
//	    // log and ignore; the previous state stays in place
//	}
//	store.Set(state)
//
//	if latest, ok := store.Get(); ok {
//	    temp, _ := latest.Float("temperature")
//	}
//
// There is no history. Each Set replaces the previous value.
package device
