package hci

import "github.com/rigado/hcicore"

// Logger is the default logger of the hci tree.
var Logger = hcicore.GetLogger().ChildLogger(map[string]interface{}{"pkg": "hci"})
