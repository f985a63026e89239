// devicehash prints the current machine fingerprint. Support asks the
// customer to run this and send the device hash to the vendor when
// requesting a license.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/technosupport/ts-pos/internal/license"
	"github.com/technosupport/ts-pos/internal/platform/hwid"
)

func main() {
	asJSON := flag.Bool("json", false, "emit the full fingerprint as JSON")
	flag.Parse()

	gen := &license.FingerprintGenerator{Probes: hwid.New()}
	fp := gen.Fingerprint(context.Background())

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(fp)
		return
	}

	fmt.Printf("CPU ID:        %s\n", fp.CPUID)
	fmt.Printf("Volume Serial: %s\n", fp.VolumeSerial)
	fmt.Printf("MAC Address:   %s\n", fp.MACAddress)
	fmt.Printf("Device Hash:   %s\n", fp.DeviceHash)
}
