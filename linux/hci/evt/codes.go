package evt

// Event codes [Vol 4, Part E, 7.7].
const (
	DisconnectionCompleteCode    = 0x05
	EncryptionChangeCode         = 0x08
	CommandCompleteCode          = 0x0E
	CommandStatusCode            = 0x0F
	HardwareErrorCode            = 0x10
	NumberOfCompletedPacketsCode = 0x13
	DataBufferOverflowCode       = 0x1A
	LEMetaCode                   = 0x3E
	VendorDebugCode              = 0xFF
)

// LE Meta subevent codes [Vol 4, Part E, 7.7.65].
const (
	LEConnectionCompleteSubCode         = 0x01
	LEAdvertisingReportSubCode          = 0x02
	LEConnectionUpdateCompleteSubCode   = 0x03
	LELongTermKeyRequestSubCode         = 0x05
	LEEnhancedConnectionCompleteSubCode = 0x0A
	LECISEstablishedSubCode             = 0x19
	LECISRequestSubCode                 = 0x1A
	LECreateBIGCompleteSubCode          = 0x1B
	LETerminateBIGCompleteSubCode       = 0x1C
)
