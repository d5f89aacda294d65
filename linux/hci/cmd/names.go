package cmd

var (
	ResetOpCode                       = NewOpCode(OGFControllerBB, 0x0003)
	SetEventMaskOpCode                = NewOpCode(OGFControllerBB, 0x0001)
	DisconnectOpCode                  = NewOpCode(OGFLinkControl, 0x0006)
	ReadLocalVersionInformationOpCode = NewOpCode(OGFInformational, 0x0001)
	ReadBufferSizeOpCode              = NewOpCode(OGFInformational, 0x0005)
	ReadBDADDROpCode                  = NewOpCode(OGFInformational, 0x0009)
	LESetEventMaskOpCode              = NewOpCode(OGFLEController, 0x0001)
	LEReadBufferSizeV2OpCode          = NewOpCode(OGFLEController, 0x0060)
	LEReadISOTxSyncOpCode             = NewOpCode(OGFLEController, 0x0061)
	LESetCIGParametersOpCode          = NewOpCode(OGFLEController, 0x0062)
	LECreateCISOpCode                 = NewOpCode(OGFLEController, 0x0064)
	LERemoveCIGOpCode                 = NewOpCode(OGFLEController, 0x0065)
	LESetupISODataPathOpCode          = NewOpCode(OGFLEController, 0x006E)
)

var names = map[OpCode]string{
	NoOp:                              "NOP",
	ResetOpCode:                       "Reset",
	SetEventMaskOpCode:                "Set Event Mask",
	DisconnectOpCode:                  "Disconnect",
	ReadLocalVersionInformationOpCode: "Read Local Version Information",
	ReadBufferSizeOpCode:              "Read Buffer Size",
	ReadBDADDROpCode:                  "Read BD_ADDR",
	LESetEventMaskOpCode:              "LE Set Event Mask",
	LEReadBufferSizeV2OpCode:          "LE Read Buffer Size v2",
	LEReadISOTxSyncOpCode:             "LE Read ISO TX Sync",
	LESetCIGParametersOpCode:          "LE Set CIG Parameters",
	LECreateCISOpCode:                 "LE Create CIS",
	LERemoveCIGOpCode:                 "LE Remove CIG",
	LESetupISODataPathOpCode:          "LE Setup ISO Data Path",
}
