package conf

import (
	"fmt"
	"runtime"
)

const Version = "0.4.0"

const (
	CONTENT_TYPE_JSON      = "application/json"
	CONTENT_TYPE_OCTET     = "application/octet-stream"
	CONTENT_TYPE_MULTIPART = "multipart/form-data"
)

func UserAgent() string {
	return fmt.Sprintf("agentbox-go/%s (%s; %s; %s)", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
