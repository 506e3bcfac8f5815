// ABOUTME: Lubdub protocol package
// ABOUTME: JSON messages and WebSocket client for remote beat listeners
// Package protocol implements the lubdub beat protocol.
//
// Every message is a JSON envelope {"type": ..., "payload": ...}. After the
// client/hello and server/hello handshake the server sends the detected
// beat/timeline, then a beat/event for each S1 and S2 as it is heard and a
// beat/cycle whenever the clip loops.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{
//	    ServerAddr: "localhost:8928",
//	    ClientID:   uuid.New().String(),
//	    Name:       "probe",
//	})
//	err := client.Connect()
//	for ev := range client.Events {
//	    fmt.Println(ev.Sound, ev.Cycle)
//	}
package protocol
