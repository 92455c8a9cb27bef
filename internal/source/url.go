package source

import "fmt"

// tunnelURL builds the vendor tunnel URL the Bambu LAN-mode access library
// expects, reproducing the format the printer firmware's local streaming
// endpoint requires byte for byte.
func tunnelURL(ip, device, passcode string) string {
	return fmt.Sprintf(
		"bambu:///local/%s.?port=6000&user=bblp&passwd=%s&device=%s&version=00.00.00.00",
		ip, passcode, device,
	)
}
