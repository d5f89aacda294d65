package hci

// CommandTransport carries command and event frames. Frames exclude the
// H4 packet indicator. Send errors surface through the transport's own
// fatal error path, never as a return value.
type CommandTransport interface {
	SendCommand(b []byte)

	// SetEventCallback replaces the event callback. The callback receives
	// one complete event frame per call, on the dispatch sequence.
	SetEventCallback(cb func(b []byte))
}

// DataTransport carries data frames of one kind (ACL or ISO).
type DataTransport interface {
	SendData(b []byte)

	// SetReceiveDataCallback replaces the data callback. The callback
	// receives one complete data frame per call, on the dispatch sequence.
	SetReceiveDataCallback(cb func(b []byte))
}

// Transport is a link carrying both commands and data.
type Transport interface {
	CommandTransport
	DataTransport
}
