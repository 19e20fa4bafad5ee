// Package bridge translates between the MQTT broker and web clients.
//
// # Architecture
//
//	                 ┌──────────────────────────────────────────────┐
//	 broker ──msg──▶ │ mqtt.Client ─▶ messageLoop ─▶ Router         │
//	                 │                               │       │      │
//	                 │                     EventSink ◀┘       └▶ device.Store
//	                 │                                              │
//	 broker ◀─pub─── │ mqtt.Client ◀─ Commander ◀── HTTP command    │
//	                 └──────────────────────────────────────────────┘
//
// # Topics
//
// Subscribed on every connect (SubscriptionManager):
//
//	<ns>/zolertia/reply   "on\x00" / "off\x00"          → device-ack
//	<ns>/sensor/reply     "...Activated_bme280..."      → sensor-ack
//	<ns>/zolertia/data    JSON object                    → device.Store
//
// Published (Commander):
//
//	<ns>/zolertia/cmd     opr verbatim when dev == "Mote"
//	<ns>/sensor/cmd       ACTIVATETEMPSEN / DEACTIVATETEMPSEN
//
// Each inbound message yields at most one event or one state write.
package bridge
