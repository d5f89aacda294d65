package h4

import "github.com/rigado/hcicore/linux/hci"

// Logger is the default logger of the h4 package.
var Logger = hci.Logger.ChildLogger(map[string]interface{}{"component": "h4"})
