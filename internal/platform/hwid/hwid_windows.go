//go:build windows

package hwid

import (
	"context"
	"fmt"
	"os/exec"
)

// SystemProbes queries hardware identifiers through WMI/CIM via
// out-of-process PowerShell, the same channel the rest of the product uses
// for Windows system queries.
type SystemProbes struct{}

func New() *SystemProbes {
	return &SystemProbes{}
}

func (*SystemProbes) CPUID(ctx context.Context) (string, error) {
	return runPS(ctx, `(Get-CimInstance Win32_Processor | Select-Object -First 1).ProcessorId`)
}

func (*SystemProbes) VolumeSerial(ctx context.Context) (string, error) {
	// The system volume, not whatever drive the store happens to live on.
	return runPS(ctx, `(Get-CimInstance Win32_LogicalDisk -Filter ("DeviceID='" + $env:SystemDrive + "'")).VolumeSerialNumber`)
}

func (*SystemProbes) MACAddress(ctx context.Context) (string, error) {
	return runPS(ctx, `(Get-CimInstance Win32_NetworkAdapterConfiguration -Filter 'IPEnabled=True' | Select-Object -ExpandProperty MACAddress -First 1)`)
}

func runPS(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("hwid: probe timed out: %w", ctx.Err())
		}
		return "", fmt.Errorf("hwid: powershell execution failed: %w", err)
	}
	return clamp(output), nil
}
