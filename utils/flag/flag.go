/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/

package flag

import (
	"flag"
	"os"
	"strings"
)

const (
	APIServer = "api_server"
)

var (
	IsDevelopment bool
	ServiceName   *string
)

func init() {
	flag.BoolVar(&IsDevelopment, "dev", true, "set to true if the current run is for development. default value is true")
	ServiceName = flag.String("service", APIServer, "name of the service for logging and metrics tagging")
	// Parsing here would break test binaries: testing's -test.* flags are
	// not registered yet during package init.
	if !strings.HasSuffix(os.Args[0], ".test") {
		flag.Parse()
	}
}
